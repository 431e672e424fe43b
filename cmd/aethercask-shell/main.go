// Command aethercask-shell opens an interactive, readline-style session
// against an aethercask-server, with command history and tab completion.
package main

import (
	"fmt"
	"os"

	"github.com/jassi-singh/aethercask/internal/cli"
	"github.com/jassi-singh/aethercask/internal/config"
	flag "github.com/spf13/pflag"
)

func main() {
	addr := flag.StringP("addr", "a", config.DefaultAddr, "server address")
	simple := flag.BoolP("simple", "s", false, "use a plain scanner loop instead of the liner-backed REPL (for piped stdin, e.g. scripted sessions or dumb terminals)")
	flag.Parse()

	client, err := cli.Dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer client.Close()

	shell := cli.NewShell(client)
	run := shell.Run
	if *simple {
		run = shell.RunPlain
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
