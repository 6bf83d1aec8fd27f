package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/mirror-kt/gpg-bridge/internal/agentctl"
	"github.com/mirror-kt/gpg-bridge/internal/bridge"
	"github.com/mirror-kt/gpg-bridge/internal/metrics"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

// detachSentinel marks a process that has already been re-exec'd into
// the background; its presence stops an infinite re-exec loop.
const detachSentinel = "_GPG_BRIDGE_DETACHED_"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	app := cli.NewApp()
	app.Name = "gpg-bridge"
	app.Usage = "bridge GnuPG's Windows extra/ssh agent sockets to ordinary TCP or named-pipe endpoints"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "ssh",
			Usage: "run the ssh-socket adapter instead of the extra-socket adapter",
		},
		cli.StringFlag{
			Name:  "listen,l",
			Value: "127.0.0.1:0",
			Usage: `endpoint to listen on: a TCP address "host:port", or a named pipe path "\\.\pipe\name"`,
		},
		cli.StringFlag{
			Name:  "extra-socket",
			Value: "",
			Usage: "override path to the extra-socket rendezvous file instead of resolving it via gpgconf",
		},
		cli.StringFlag{
			Name:  "gpgconf",
			Value: "gpgconf",
			Usage: "gpgconf binary used to resolve rendezvous-file paths",
		},
		cli.StringFlag{
			Name:  "gpg-connect-agent",
			Value: "gpg-connect-agent",
			Usage: "gpg-connect-agent binary used to (re)start the agent",
		},
		cli.BoolFlag{
			Name:  "detach,d",
			Usage: "re-exec into the background and exit the foreground process",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "statslog",
			Value: "",
			Usage: "collect adapter counters to file, aware of time format in golang, like ./stats-20060102.log",
		},
		cli.IntFlag{
			Name:  "statslog-period",
			Value: 60,
			Usage: "stats collection period, in seconds",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(c *cli.Context) error {
	if c.Bool("detach") && os.Getenv(detachSentinel) == "" {
		return detach()
	}

	if logfile := c.String("log"); logfile != "" {
		f, err := os.OpenFile(logfile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	}

	control := &agentctl.Control{
		GpgConf:         c.String("gpgconf"),
		GpgConnectAgent: c.String("gpg-connect-agent"),
	}

	stats := &metrics.Counters{}
	if statslog := c.String("statslog"); statslog != "" {
		go metrics.Log(statslog, time.Duration(c.Int("statslog-period"))*time.Second, stats)
	}

	kind := agentctl.SocketExtra
	if c.Bool("ssh") {
		kind = agentctl.SocketSSH
		if c.String("extra-socket") != "" {
			color.Red("WARNING: --extra-socket has no effect when --ssh is set")
		}
	}

	log.Println("version:", VERSION)
	log.Println("socket kind:", kind)
	log.Println("listen:", c.String("listen"))

	return bridge.Run(bridge.Config{
		Kind:         kind,
		EndpointSpec: c.String("listen"),
		OverridePath: c.String("extra-socket"),
		Control:      control,
		Stats:        stats,
	})
}

// detach re-execs the current binary with the same arguments and a
// sentinel environment variable set, with no standard streams
// attached, and exits the foreground process once the child has
// started. The child is not placed in a new session, process group or
// console of its own.
func detach() error {
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), detachSentinel+"=1")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("detaching: %w", err)
	}
	log.Printf("detached as pid %d", cmd.Process.Pid)
	return nil
}
