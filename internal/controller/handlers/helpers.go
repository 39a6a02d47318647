package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

// uuidValue флаг с UUID значением
type uuidValue struct {
	id *uuid.UUID
}

func (v uuidValue) String() string {
	if v.id == nil || *v.id == uuid.Nil {
		return ""
	}
	return v.id.String()
}

func (v uuidValue) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*v.id = id
	return nil
}

func (v uuidValue) Type() string {
	return "uuid"
}

// timeValue флаг со временем в RFC3339
type timeValue struct {
	t *time.Time
}

func (v timeValue) String() string {
	if v.t == nil || v.t.IsZero() {
		return ""
	}
	return v.t.Format(time.RFC3339)
}

func (v timeValue) Set(s string) error {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*v.t = t
	return nil
}

func (v timeValue) Type() string {
	return "time"
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func uuidFlag(fs *pflag.FlagSet, id *uuid.UUID, name, usage string) {
	fs.Var(uuidValue{id: id}, name, usage)
}

func timeFlag(fs *pflag.FlagSet, t *time.Time, name, usage string) {
	fs.Var(timeValue{t: t}, name, usage)
}

// parseFlags разбирает args и проверяет, что обязательные флаги заданы
func parseFlags(fs *pflag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	var missing []string
	for _, name := range required {
		if !fs.Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flags not set: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (h *Handlers) writeJSON(v any) error {
	enc := json.NewEncoder(h.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
