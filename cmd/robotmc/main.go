// Command robotmc runs the motor controller's control loop against the
// simulated hardware backend, talking to the host over a serial device or
// stdio. It exists to exercise the full wire protocol end to end; on the
// real board the same loop runs behind the silicon PWM and GPIO
// peripherals.
package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sdfgeoff/slambot/internal/firmware"
	"github.com/sdfgeoff/slambot/internal/firmware/sim"
	"github.com/sdfgeoff/slambot/internal/logging"
	"github.com/sdfgeoff/slambot/internal/serialport"
)

const linkBaud = 115200

// stdioLink joins stdin and stdout into one non-blocking ReadWriter: a
// pump goroutine absorbs the blocking stdin reads so a control tick never
// stalls, and Read returns (0, nil) when no bytes are waiting.
type stdioLink struct {
	ch  chan []byte
	buf []byte
}

func newStdioLink() *stdioLink {
	l := &stdioLink{ch: make(chan []byte, 16)}
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				l.ch <- chunk
			}
			if err != nil {
				close(l.ch)
				return
			}
		}
	}()
	return l
}

func (l *stdioLink) Read(p []byte) (int, error) {
	if len(l.buf) == 0 {
		select {
		case chunk, ok := <-l.ch:
			if !ok {
				return 0, io.EOF
			}
			l.buf = chunk
		default:
			return 0, nil
		}
	}
	n := copy(p, l.buf)
	l.buf = l.buf[n:]
	return n, nil
}

func (*stdioLink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func main() {
	linkPath := flag.String("link", "stdio", "Host link: serial device path, or 'stdio'")
	tick := flag.Duration("tick", time.Millisecond, "Control loop period")
	flag.Parse()
	l := logging.L().With("app", "robotmc")

	var link io.ReadWriter
	if *linkPath == "stdio" {
		link = newStdioLink()
	} else {
		port, err := serialport.Open(*linkPath, linkBaud, time.Millisecond)
		if err != nil {
			l.Error("link_open_error", "device", *linkPath, "error", err)
			os.Exit(1)
		}
		defer port.Close()
		link = port
	}

	start := time.Now()
	raw := func() uint64 { return uint64(time.Since(start).Microseconds()) }

	robot := sim.NewRobot(firmware.DefaultGeometry)
	ctrl := firmware.NewController(link, robot.Encoders(), robot.Motors(), firmware.DefaultGeometry, raw)
	ctrl.Start()
	l.Info("mc_running", "link", *linkPath, "tick", tick.String())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			return
		case now := <-ticker.C:
			robot.Step(now.Sub(last))
			last = now
			ctrl.Tick()
		}
	}
}
