package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/eduassist/portal/internal/ports"
)

// Prompter asks for whatever login flags were left out.
type Prompter interface {
	Credentials(email string) (ports.Credentials, error)
}

// FormPrompter prompts on the terminal with huh.
type FormPrompter struct{}

func (FormPrompter) Credentials(email string) (ports.Credentials, error) {
	c := ports.Credentials{Email: email}
	fields := []huh.Field{}
	if c.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Validate(notBlank("email")).
			Value(&c.Email))
	}
	fields = append(fields, huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Validate(notBlank("password")).
		Value(&c.Password))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return ports.Credentials{}, fmt.Errorf("prompt failed: %w", err)
	}
	return c, nil
}

func notBlank(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}
