// Package setup provisions a local .env file for the site.
package setup

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"site-cms/pkg/logger"
)

const (
	envFile        = ".env"
	envExampleFile = ".env.example"

	defaultServerURL = "http://localhost:3000"

	secretPlaceholder   = "YOUR_SECRET_HERE"
	databasePlaceholder = "your-database-name"
)

var secretLine = regexp.MustCompile(`(?m)^PAYLOAD_SECRET=.*$`)

// Setup walks through the values the server needs to start.
type Setup struct {
	Dir string
	In  io.Reader
	Out io.Writer

	// Secret generates PAYLOAD_SECRET values.
	Secret func() (string, error)
	Log    logger.Logger
}

func New(dir string, in io.Reader, out io.Writer) *Setup {
	return &Setup{Dir: dir, In: in, Out: out, Secret: GenerateSecret, Log: logger.NewNop()}
}

// GenerateSecret returns 32 random bytes, hex encoded.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Setup) envPath() string { return filepath.Join(s.Dir, envFile) }

// Run creates or completes the .env file. Answers to prompts are read a
// line at a time from In.
func (s *Setup) Run() error {
	if s.Log == nil {
		s.Log = logger.NewNop()
	}
	fmt.Fprintln(s.Out, "Starting setup...")
	if err := s.createFromExample(); err != nil {
		return err
	}

	values, err := s.read()
	if err != nil {
		return err
	}

	if v := values["PAYLOAD_SECRET"]; v == "" || strings.Contains(v, secretPlaceholder) {
		secret, err := s.Secret()
		if err != nil {
			return err
		}
		if err := s.update("PAYLOAD_SECRET", secret); err != nil {
			return err
		}
		fmt.Fprintln(s.Out, "Generated new PAYLOAD_SECRET")
	}

	if v := values["DATABASE_URI"]; v == "" || strings.Contains(v, databasePlaceholder) {
		fmt.Fprint(s.Out, "Enter your MongoDB connection string: ")
		uri, err := bufio.NewReader(s.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read connection string: %w", err)
		}
		if err := s.update("DATABASE_URI", strings.TrimSpace(uri)); err != nil {
			return err
		}
		fmt.Fprintln(s.Out, "Updated DATABASE_URI")
	} else {
		fmt.Fprintln(s.Out, "Valid DATABASE_URI already exists")
	}

	if _, ok := values["NEXT_PUBLIC_SERVER_URL"]; !ok {
		if err := s.update("NEXT_PUBLIC_SERVER_URL", defaultServerURL); err != nil {
			return err
		}
		fmt.Fprintln(s.Out, "Added NEXT_PUBLIC_SERVER_URL")
	}

	fmt.Fprintln(s.Out, "Setup complete!")
	return nil
}

func (s *Setup) createFromExample() error {
	if _, err := os.Stat(s.envPath()); err == nil {
		return nil
	}
	examplePath := filepath.Join(s.Dir, envExampleFile)
	example, err := os.ReadFile(examplePath)
	if errors.Is(err, fs.ErrNotExist) {
		// .env is then written from the answers alone.
		s.Log.Warn(".env.example file not found", logger.String("path", examplePath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", envExampleFile, err)
	}
	secret, err := s.Secret()
	if err != nil {
		return err
	}
	content := secretLine.ReplaceAllLiteral(example, []byte("PAYLOAD_SECRET="+secret))
	if err := os.WriteFile(s.envPath(), content, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", envFile, err)
	}
	fmt.Fprintln(s.Out, "Created .env file from .env.example")
	return nil
}

// read parses the uncommented assignments of the .env file.
func (s *Setup) read() (map[string]string, error) {
	values, err := godotenv.Read(s.envPath())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envFile, err)
	}
	return values, nil
}

// update replaces the first uncommented KEY= line, or appends one.
func (s *Setup) update(key, value string) error {
	raw, err := os.ReadFile(s.envPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", envFile, err)
	}
	content := string(raw)

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	replaced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, key+"=") {
			lines[i] = key + "=" + value
			replaced = true
			break
		}
	}
	if replaced {
		content = strings.Join(lines, "\n")
	} else {
		content += "\n" + key + "=" + value + "\n"
	}

	if err := os.WriteFile(s.envPath(), []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", envFile, err)
	}
	return nil
}
