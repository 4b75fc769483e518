// Command client is the interactive chat client: it logs in over a blocking
// handshake on the plain terminal, then hands the screen to the gocui view
// while the receive loop runs in the background.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"ircchat/internal/client"
	"ircchat/internal/protocol"
)

const defaultAddress = "localhost:8000"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [address]
    address: Server address - can be a port (eg 8000) on localhost, or IP:port (eg 127.0.0.1:8000)
`, os.Args[0])
}

func parseAddress(args []string) string {
	if len(args) == 0 {
		return defaultAddress
	}
	if strings.Contains(args[0], ":") {
		return args[0]
	}
	return "localhost:" + args[0]
}

func main() {
	if len(os.Args) > 2 {
		usage()
		os.Exit(1)
	}
	addr := parseAddress(os.Args[1:])

	sess, err := client.Dial(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error connecting to server")
		os.Exit(1)
	}

	if err := login(sess); err != nil {
		fmt.Fprintln(os.Stderr, "Connection lost:", err)
		os.Exit(1)
	}

	sess.Rooms.Append(protocol.DefaultRoom, "Welcome to IRC!")
	sess.Rooms.Append(protocol.DefaultRoom, fmt.Sprintf("You are logged in as '%s'", sess.Username()))

	ui, err := newChatUI(sess, addr)
	if err != nil {
		sess.Close("Exited", false)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	go sess.Listen()

	exitMsg, timedOut, err := ui.Run()
	ui.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(exitMsg)
	if timedOut {
		os.Exit(1)
	}
}

// login prompts on stdin until the server confirms a username, reporting
// the specific rejection each time around.
func login(sess *client.Session) error {
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Enter Username: ")
		if !in.Scan() {
			return errors.New("stdin closed")
		}
		err := sess.Login(strings.TrimSpace(in.Text()))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, client.ErrNameExists):
			fmt.Println("ERROR: Username already exists")
		case errors.Is(err, client.ErrIllegalName):
			fmt.Println("ERROR: Username is illegal")
		case errors.Is(err, client.ErrNameLength):
			fmt.Println("ERROR: Username has illegal length")
		default:
			return err
		}
	}
}
