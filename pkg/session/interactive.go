package session

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CookiePrompt authenticates by asking the operator to paste the auth_token
// and ct0 cookie values from a logged-in browser session. It is the
// interactive collaborator of last resort.
type CookiePrompt struct {
	In  io.Reader
	Out io.Writer
}

// Authenticate prompts for the two session cookies and installs them on the
// client.
func (p *CookiePrompt) Authenticate(ctx context.Context, client Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(p.Out, "Paste the session cookies from a logged-in browser:")
	fmt.Fprintln(p.Out, "  1. Log into x.com in your browser")
	fmt.Fprintln(p.Out, "  2. Open Developer Tools > Application > Cookies")
	fmt.Fprintln(p.Out, "  3. Copy the auth_token and ct0 values")
	fmt.Fprintln(p.Out)

	reader := bufio.NewReader(p.In)

	authToken, err := p.readValue(reader, "auth_token: ")
	if err != nil {
		return err
	}
	csrfToken, err := p.readValue(reader, "ct0: ")
	if err != nil {
		return err
	}

	if authToken == "" || csrfToken == "" {
		return fmt.Errorf("both auth_token and ct0 are required")
	}

	blob, err := json.Marshal(map[string]string{
		"auth_token": authToken,
		"ct0":        csrfToken,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	return client.LoadSession(blob)
}

func (p *CookiePrompt) readValue(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// SeedFromSecret writes a base64 session blob (typically injected through a
// CI secret) into the store, unless the store already holds a session. An
// empty secret is a no-op.
func SeedFromSecret(store Store, b64 string) error {
	if b64 == "" || store.Exists() {
		return nil
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return fmt.Errorf("failed to decode session secret: %w", err)
	}
	if err := store.Save(blob); err != nil {
		return fmt.Errorf("failed to seed session store: %w", err)
	}
	return nil
}
