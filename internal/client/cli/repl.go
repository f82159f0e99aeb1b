package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// Run reads commands until "exit" or end of input.
func (a *App) Run(ctx context.Context) {

	fmt.Fprintln(a.out, "nakgo auth CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(a.in)

	for {
		fmt.Fprintf(a.out, "nakgo %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(a.out, "Available commands: verify, refresh, logout, ping, exit")
			} else {
				fmt.Fprintln(a.out, "Available commands: login <kakao-access-token>, ping, exit")
			}
		case "ping":
			err = a.Ping(ctx)
		case "login":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: login <kakao-access-token>")
				continue
			}
			err = a.Login(ctx, args[0])
		case "verify":
			err = a.Verify(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(a.out, "error:", describe(err))
		}
	}
}
