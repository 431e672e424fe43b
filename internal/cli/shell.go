package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

var commands = []string{"get", "set", "rm", "help", "exit", "quit"}

// Shell is an interactive front-end over a Client. Run drives a
// readline-style REPL (history, tab completion), grounded on the same
// liner usage pattern as sloty's REPL; RunPlain drives the same get/set/rm
// commands off a bare bufio.Scanner for piped or non-terminal input, where
// liner's line editing has nothing to attach to.
type Shell struct {
	client *Client
	liner  *liner.State
}

// NewShell creates a Shell driving client.
func NewShell(client *Client) *Shell {
	return &Shell{client: client}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aethercask_history")
}

// Run starts the interactive loop until "exit"/"quit" or EOF.
func (s *Shell) Run() error {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(s.completer)

	if f, err := os.Open(historyFile()); err == nil {
		s.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("aethercask shell - type 'help' for commands")

	for {
		line, err := s.liner.Prompt("aethercask> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				break
			}
			return fmt.Errorf("cli: failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit":
			s.saveHistory()
			return nil
		case "help":
			s.printHelp()
		case "get":
			s.cmdGet(args)
		case "set":
			s.cmdSet(args)
		case "rm":
			s.cmdRemove(args)
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	s.saveHistory()
	return nil
}

// RunPlain starts the interactive loop over a bare bufio.Scanner, with no
// history or completion, until "exit"/"quit" or EOF. It accepts the same
// get/set/rm/help vocabulary as Run, so scripted sessions and dumb
// terminals see identical command behavior to the liner-backed REPL.
func (s *Shell) RunPlain() error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("aethercask shell - type 'help' for commands")
	fmt.Print("aethercask> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("aethercask> ")
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			s.printHelp()
		case "get":
			s.cmdGet(args)
		case "set":
			s.cmdSet(args)
		case "rm":
			s.cmdRemove(args)
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}

		fmt.Print("aethercask> ")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cli: failed to read input: %w", err)
	}
	return nil
}

func (s *Shell) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		s.liner.WriteHistory(f)
		f.Close()
	}
}

func (s *Shell) printHelp() {
	fmt.Println("commands:")
	fmt.Println("  get <key>")
	fmt.Println("  set <key> <value>")
	fmt.Println("  rm <key>")
	fmt.Println("  exit | quit")
}

func (s *Shell) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <key>")
		return
	}
	value, found, err := s.client.Get(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !found {
		fmt.Println("Key not found")
		return
	}
	fmt.Println(value)
}

func (s *Shell) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: set <key> <value>")
		return
	}
	key, value := args[0], strings.Join(args[1:], " ")
	if err := s.client.Set(key, value); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func (s *Shell) cmdRemove(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: rm <key>")
		return
	}
	if err := s.client.Remove(args[0]); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func (s *Shell) completer(line string) []string {
	var matches []string
	for _, c := range commands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			matches = append(matches, c)
		}
	}
	return matches
}
