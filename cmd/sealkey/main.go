// Command sealkey prints the LLM_API_KEY_SEALED value for a chat credential.
// The credential is read from stdin so it never lands in shell history.
//
//	MASTER_KEY=... sealkey < key.txt
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"bioneuro/backend/internal/crypto"
)

func main() {
	_ = godotenv.Load()

	master := os.Getenv("MASTER_KEY")
	if master == "" {
		fail("MASTER_KEY is not set")
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		fail("read credential: " + err.Error())
	}
	plaintext := strings.TrimSpace(line)
	if plaintext == "" {
		fail("empty credential")
	}

	sealed, err := crypto.Encrypt(master, plaintext)
	if err != nil {
		fail("seal credential: " + err.Error())
	}
	fmt.Println(sealed)
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "sealkey:", msg)
	os.Exit(1)
}
