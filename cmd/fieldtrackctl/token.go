package main

import (
	"fmt"
	"strings"

	"fieldtrack/config"
	"fieldtrack/internal/infra/auth"

	"github.com/pkg/errors"
)

func runToken(subject, roles string) error {
	cfg, err := config.New()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	tokens, err := auth.NewJWTService(cfg)
	if err != nil {
		return err
	}

	token, err := tokens.GenerateAccessToken(subject, splitRoles(roles))
	if err != nil {
		return err
	}

	fmt.Println(token)

	return nil
}

func splitRoles(roles string) []string {
	var out []string
	for role := range strings.SplitSeq(roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			out = append(out, role)
		}
	}

	return out
}
