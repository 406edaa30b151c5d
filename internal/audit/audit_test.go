package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/testutil"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestLog_RecordsAndRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	clk := testutil.NewMockClock(testutil.Epoch)
	l := NewLog(dir, clk, false)

	l.Record(Entry{Type: TypeDamageDenied, Player: 7, Rule: "mode", Reason: "attacker pve, target pve"})
	l.Record(Entry{Type: TypeDamageAllowed, Player: 7})
	clk.Advance(time.Hour)
	l.Record(Entry{Type: TypeModeReverted, Player: 9, Mode: "pvp"})
	require.NoError(t, l.Close())

	first := readEntries(t, filepath.Join(dir, "audit-2026-03-01-12.jsonl.zst"))
	require.Len(t, first, 1, "allowed entries are dropped by default")
	assert.Equal(t, TypeDamageDenied, first[0].Type)
	assert.Equal(t, "mode", first[0].Rule)
	assert.True(t, testutil.Epoch.Equal(first[0].Time))

	id, err := ulid.Parse(first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(testutil.Epoch), id.Time())

	second := readEntries(t, filepath.Join(dir, "audit-2026-03-01-13.jsonl.zst"))
	require.Len(t, second, 1)
	assert.Equal(t, TypeModeReverted, second[0].Type)
}

func TestLog_LogAllowed(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir, testutil.NewMockClock(testutil.Epoch), true)

	l.Record(Entry{Type: TypeDamageAllowed, Player: 1, Amount: 37})
	require.NoError(t, l.Close())

	got := readEntries(t, filepath.Join(dir, "audit-2026-03-01-12.jsonl.zst"))
	require.Len(t, got, 1)
	assert.Equal(t, 37.0, got[0].Amount)
}

func TestLog_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	clk := testutil.NewMockClock(testutil.Epoch)

	l := NewLog(dir, clk, false)
	l.Record(Entry{Type: TypeModeSwitch, Player: 1})
	require.NoError(t, l.Close())

	l = NewLog(dir, clk, false)
	l.Record(Entry{Type: TypeModeSwitch, Player: 2})
	require.NoError(t, l.Close())

	got := readEntries(t, filepath.Join(dir, "audit-2026-03-01-12.jsonl.zst"))
	assert.Len(t, got, 2)
}

func TestLog_EntryReadableBeforeClose(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir, testutil.NewMockClock(testutil.Epoch), false)
	t.Cleanup(func() { _ = l.Close() })

	l.Record(Entry{Type: TypeDamageDenied, Player: 7, Rule: "zone"})

	f, err := os.Open(filepath.Join(dir, "audit-2026-03-01-12.jsonl.zst"))
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	require.NoError(t, err)
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	require.NoError(t, err)

	var e Entry
	require.NoError(t, json.Unmarshal(line, &e))
	assert.Equal(t, TypeDamageDenied, e.Type)
	assert.Equal(t, model.PlayerID(7), e.Player)
	assert.Equal(t, "zone", e.Rule)
}
