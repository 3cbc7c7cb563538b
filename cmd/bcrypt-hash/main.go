// Command bcrypt-hash prints the bcrypt hash stored in users.password_hash,
// for seeding accounts by hand. With -verify it checks a password against an
// existing hash instead.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"tunebox/internal/utils"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	verify := flag.String("verify", "", "hash to check the password against")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-cost n] [-verify hash] <password>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	pw := flag.Arg(0)

	if *verify != "" {
		if err := utils.CheckPasswordHash(pw, *verify); err != nil {
			fmt.Fprintln(os.Stderr, "password does not match")
			os.Exit(1)
		}
		fmt.Println("ok")
		return
	}

	if err := utils.ValidatePassword(pw); err != nil {
		fmt.Fprintf(os.Stderr, "invalid password: %v\n", err)
		os.Exit(1)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "cost must be between %d and %d\n", bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pw), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}
