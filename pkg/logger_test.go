package storage

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerHidesKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil))
	log.Info("Reading event 3", "module", "dump")

	assert.Regexp(t, `^\[\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\] \[dump\] Reading event 3\n$`, buf.String())
}

func TestHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
	log.Info("dropped")
	assert.Empty(t, buf.String())
	log.With("module", "x").Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestHandlerModuleFromWith(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil)).With("module", "storage", "session", "abc")
	log.Info("closing", "events", 3, "path", "mem://run 7")

	assert.Regexp(t, `\] \[storage\] closing session=abc events=3 path="mem://run 7"\n$`, buf.String())
}

func TestHandlerGroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	log.WithGroup("pool").Warn("growing", "module", "hits", slog.Group("stat", "live", 2))
	assert.Regexp(t, `\] \[WARN\] growing pool\.module=hits pool\.stat\.live=2\n$`, buf.String())

	buf.Reset()
	log.Debug("empty value", "key", "")
	assert.Regexp(t, `\] \[DEBUG\] empty value key=""\n$`, buf.String())
}

func TestSlogLogger(t *testing.T) {
	var info, errs bytes.Buffer
	l := SlogLogger{
		InfoLog:  slog.New(NewHandler(&info, nil)),
		ErrorLog: slog.New(slog.NewJSONHandler(&errs, nil)),
	}
	SetLogger(l)
	defer SetLogger(nil)

	PrintConfiguration(DefaultConfiguration(), logger)
	assert.Contains(t, info.String(), "[config] Number of planes: 6\n")

	logger.Error("boom")
	var record map[string]any
	require.NoError(t, json.Unmarshal(errs.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "boom", record["msg"])
}
