// Command hash-generator prints a bcrypt hash of a reminder trigger secret,
// suitable for BOARDNOTIFY_REMINDER_TRIGGER_SECRET.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/phrazzld/boardnotify/internal/service/auth"
)

func main() {
	secret := flag.String("secret", "", "secret to hash; read from stdin when empty")
	flag.Parse()

	value := *secret
	if value == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "failed to read secret: %v\n", err)
			os.Exit(1)
		}
		value = strings.TrimRight(line, "\r\n")
	}
	if value == "" {
		fmt.Fprintln(os.Stderr, "secret must not be empty")
		os.Exit(1)
	}

	hash, err := auth.HashSecret(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash secret: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
