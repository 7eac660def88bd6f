package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/camvault/internal/common"
)

// EnsureAdmin checks the bootstrap admin credentials. A missing password is
// read from in when it is a terminal.
func (c *Config) EnsureAdmin(in *os.File, out io.Writer) error {
	if strings.TrimSpace(c.AdminUsername) == "" {
		return invalid("%s is not set", envAdminUsername)
	}
	if c.AdminPassword != "" {
		return nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return invalid("%s is not set", envAdminPassword)
	}

	pw, err := promptAdminPassword(fd, out, c.AdminUsername)
	if err != nil {
		return err
	}
	if pw == "" {
		return invalid("admin password is empty")
	}
	c.AdminPassword = pw
	return nil
}

var readPassword = term.ReadPassword

func promptAdminPassword(fd int, out io.Writer, name string) (string, error) {
	fmt.Fprintf(out, "Password for %s: ", name)
	b, err := readPassword(fd)
	fmt.Fprintln(out)
	defer common.WipeByteArray(b)
	if err != nil {
		return "", fmt.Errorf("read admin password: %w", err)
	}
	return string(b), nil
}
