// Command hashpw prints a bcrypt hash for ADMIN_PASSWORD_HASH, or checks a
// password against an existing hash.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	check := flag.String("check", "", "existing hash to verify the password against")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	password := strings.Join(flag.Args(), " ")
	if password == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "no password given")
			os.Exit(2)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if *check != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(*check), []byte(password)); err != nil {
			fmt.Println("hash mismatch:", err)
			os.Exit(1)
		}
		fmt.Println("hash ok")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash:", err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
