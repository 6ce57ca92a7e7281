package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DetectHost reads the .git/config in the given directory and returns the
// host of the origin remote. The login command uses it to pick the provider
// automatically: a host other than github.com means a GitHub Enterprise
// instance.
func DetectHost(dir string) (string, error) {
	configPath := filepath.Join(dir, ".git", "config")
	f, err := os.Open(configPath)
	if err != nil {
		return "", fmt.Errorf("could not open .git/config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `[remote "origin"]` {
			inOrigin = true
			continue
		}
		if inOrigin && strings.HasPrefix(line, "[") {
			break
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return ParseRemoteHost(strings.TrimSpace(parts[1]))
			}
		}
	}
	return "", errors.New("no origin remote found in .git/config")
}

// ParseRemoteHost extracts the host from a git remote URL.
// Supports HTTPS (https://ghes.corp.example/owner/repo.git) and SSH
// (git@ghes.corp.example:owner/repo.git).
func ParseRemoteHost(rawURL string) (string, error) {
	normalized := strings.TrimSuffix(rawURL, ".git")

	// SSH format: git@host:owner/repo
	if strings.HasPrefix(normalized, "git@") {
		trimmed := strings.TrimPrefix(normalized, "git@")
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return "", fmt.Errorf("invalid SSH remote URL: %s", rawURL)
		}
		return parts[0], nil
	}

	// HTTPS format: https://host/owner/repo
	if strings.HasPrefix(normalized, "https://") || strings.HasPrefix(normalized, "http://") {
		withoutScheme := strings.TrimPrefix(normalized, "https://")
		withoutScheme = strings.TrimPrefix(withoutScheme, "http://")
		parts := strings.SplitN(withoutScheme, "/", 2)
		if parts[0] == "" {
			return "", fmt.Errorf("invalid HTTPS remote URL: %s", rawURL)
		}
		return parts[0], nil
	}

	return "", fmt.Errorf("unsupported remote URL format: %s", rawURL)
}
