// Command keydump is a thin demonstrator of the keypress pipeline: it puts
// the terminal in raw mode, decodes whatever arrives into KeyEvents, and
// prints one line per event until interrupted. It also doubles as a fixture
// recorder/replayer and a pty-driven harness for exercising the pipeline
// without a real controlling terminal.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/yarlson/tap/pkg/keyboard"
)

var (
	kittyFlag           bool
	pasteWorkaroundFlag bool
	debugFlag           bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "keydump",
		Short: "Decode terminal keypresses into a live KeyEvent stream",
	}
	rootCmd.PersistentFlags().BoolVar(&kittyFlag, "kitty", false, "enable the kitty keyboard protocol decoder")
	rootCmd.PersistentFlags().BoolVar(&pasteWorkaroundFlag, "paste-workaround", false, "disable Record decoding, route all bytes through the passthrough coalescer")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log kitty-buffer diagnostics to stderr")

	rootCmd.AddCommand(runCmd(), recordCmd(), replayCmd(), ptyHarnessCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "keydump:", err)
		os.Exit(1)
	}
}

func config() keyboard.Config {
	cfg := keyboard.Config{
		KittyProtocolEnabled:  kittyFlag,
		PasteWorkaround:       pasteWorkaroundFlag,
		DebugKeystrokeLogging: debugFlag,
	}
	if debugFlag {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Dump decoded KeyEvents from the controlling terminal until ctrl+c is pressed twice in a row",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return fmt.Errorf("stdin is not a terminal; use replay or pty-harness for batch input")
			}

			sess, err := keyboard.Open(config())
			if err != nil {
				return fmt.Errorf("opening session: %w", err)
			}
			defer sess.Close()

			fmt.Fprintf(os.Stderr, "session %s: press keys, ctrl+c twice in a row to quit\n", sess.Router().ID())

			done := make(chan struct{})
			var lastWasInterrupt bool
			unsub := sess.Router().Subscribe(func(ev keyboard.KeyEvent) {
				printEvent(os.Stdout, ev)
				if ev.Ctrl && ev.Name == "c" {
					if lastWasInterrupt {
						close(done)
						return
					}
					lastWasInterrupt = true
					return
				}
				lastWasInterrupt = false
			})
			defer unsub()

			go func() {
				for range sess.Resize() {
					fmt.Fprintln(os.Stderr, "resize")
				}
			}()

			<-done
			return nil
		},
	}
}

func recordCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture raw terminal bytes to a yaml fixture instead of decoding them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}

			oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("entering raw mode: %w", err)
			}
			defer term.Restore(int(os.Stdin.Fd()), oldState)

			var fixture recordedFixture
			buf := make([]byte, 4096)
			fmt.Fprintln(os.Stderr, "recording, ctrl+d to stop")
			for {
				n, err := os.Stdin.Read(buf)
				// in raw mode ctrl+d arrives as a 0x04 byte, not as EOF
				stop := false
				if i := bytes.IndexByte(buf[:n], 0x04); i >= 0 {
					n, stop = i, true
				}
				if n > 0 {
					fixture.Chunks = append(fixture.Chunks, append([]byte(nil), buf[:n]...))
				}
				if err != nil || stop {
					break
				}
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			return yaml.NewEncoder(f).Encode(fixture)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path to write the recorded fixture")
	return cmd
}

func replayCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed a recorded yaml fixture through the decoder and print the resulting events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			f, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("opening %s: %w", in, err)
			}
			defer f.Close()

			var fixture recordedFixture
			if err := yaml.NewDecoder(f).Decode(&fixture); err != nil {
				return fmt.Errorf("decoding fixture: %w", err)
			}

			router := keyboard.NewRouter(config())
			defer router.Close()
			router.Subscribe(func(ev keyboard.KeyEvent) { printEvent(os.Stdout, ev) })

			for _, chunk := range fixture.Chunks {
				router.HandleChunk(chunk)
			}
			// give the drag-heuristic and passthrough flush timers a chance
			// to settle before the router is torn down.
			time.Sleep(200 * time.Millisecond)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "path to a fixture recorded with the record subcommand")
	return cmd
}

// ptyHarnessCmd drives the decoder from a pty pair instead of the process's
// own controlling terminal, which lets it run under a test harness or CI
// where no real tty is attached to stdin.
func ptyHarnessCmd() *cobra.Command {
	var script string
	cmd := &cobra.Command{
		Use:   "pty-harness",
		Short: "Spawn a pty pair, write a literal script into it, and dump decoded events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ptmx, tty, err := pty.Open()
			if err != nil {
				return fmt.Errorf("opening pty: %w", err)
			}
			defer tty.Close()
			defer ptmx.Close()

			router := keyboard.NewRouter(config())
			defer router.Close()
			router.Subscribe(func(ev keyboard.KeyEvent) { printEvent(os.Stdout, ev) })

			sessionID := uuid.New()
			fmt.Fprintf(os.Stderr, "harness session %s\n", sessionID)

			go func() {
				w := bufio.NewWriter(ptmx)
				_, _ = w.WriteString(script)
				_ = w.Flush()
			}()

			buf := make([]byte, 4096)
			for {
				n, err := ptmx.Read(buf)
				if n > 0 {
					router.HandleChunk(append([]byte(nil), buf[:n]...))
				}
				if err != nil {
					if err == io.EOF {
						break
					}
					break
				}
			}
			time.Sleep(200 * time.Millisecond)
			return nil
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "literal bytes to write into the pty (supports \\x1b-style escapes via -- shell quoting)")
	return cmd
}

type recordedFixture struct {
	Chunks [][]byte `yaml:"chunks"`
}

func printEvent(w io.Writer, ev keyboard.KeyEvent) {
	enc := json.NewEncoder(w)
	_ = enc.Encode(ev)
}
