// Command aethercask-client issues a single get/set/rm request against an
// aethercask-server and exits, matching the scriptable CLI surface spec.md
// names: exit code 0 on success, 1 with a message on stderr on any error.
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
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fail("usage: aethercask-client [-a addr] <get|set|rm> <key> [value]")
	}

	client, err := cli.Dial(*addr)
	if err != nil {
		fail(err.Error())
	}
	defer client.Close()

	switch args[0] {
	case "get":
		if len(args) != 2 {
			fail("usage: aethercask-client get <key>")
		}
		value, found, err := client.Get(args[1])
		if err != nil {
			fail(err.Error())
		}
		if !found {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(value)

	case "set":
		if len(args) != 3 {
			fail("usage: aethercask-client set <key> <value>")
		}
		if err := client.Set(args[1], args[2]); err != nil {
			fail(err.Error())
		}

	case "rm":
		if len(args) != 2 {
			fail("usage: aethercask-client rm <key>")
		}
		if err := client.Remove(args[1]); err != nil {
			fail(err.Error())
		}

	default:
		fail(fmt.Sprintf("unknown command %q", args[0]))
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
