package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readSecret reads one line from in without echo when in is a terminal.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		_, _ = fmt.Fprint(out, prompt)
		value, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(value), nil
	}

	value, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return value, nil
}

// readLine reads byte by byte so input meant for later prompts stays unread.
func readLine(in io.Reader) (string, error) {
	var (
		b    strings.Builder
		buf  [1]byte
		read bool
	)
	for {
		n, err := in.Read(buf[:])
		if n > 0 {
			read = true
			if buf[0] == '\n' {
				break
			}
			b.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if !read {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}

	return strings.TrimRight(b.String(), "\r"), nil
}
