package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	jww "github.com/spf13/jwalterweatherman"
	"golang.org/x/term"

	"massnet.org/mass-secretstore/logging"
)

var passRe = regexp.MustCompile(`^[0-9a-zA-Z@#$%^&]{6,40}$`)

// ValidatePassword reports whether pass is acceptable as a new store
// password.
func ValidatePassword(pass []byte) bool {
	return passRe.Match(pass)
}

// passwordReader is replaced in tests.
var passwordReader = readPassword

// readPassword prompts for a password on the terminal without echo. When
// stdin is not a terminal a single line is read instead.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return pass, err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// readNewPassword prompts twice for a new password and validates it.
func readNewPassword() ([]byte, error) {
	pass, err := passwordReader("New password: ")
	if err != nil {
		return nil, err
	}
	if !ValidatePassword(pass) {
		return nil, ErrIllegalPassword
	}
	confirm, err := passwordReader("Confirm new password: ")
	if err != nil {
		return nil, err
	}
	if string(pass) != string(confirm) {
		return nil, ErrPasswordMismatch
	}
	return pass, nil
}

func printJSON(data interface{}) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		logging.VPrint(logging.ERROR, "fail to marshal json", logging.LogFormat{"err": err})
		return
	}
	jww.FEEDBACK.Println(string(b))
}
