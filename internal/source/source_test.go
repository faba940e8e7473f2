package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "2025-07-23T00:00:02.976005+00:00 Upgrading gw-1 to version 9\n"

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestOpen_DetectsCompression(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
		want Compression
	}{
		{"plain.log", []byte(sample), None},
		{"rotated.log.gz", gzipped(t, sample), Gzip},
		{"rotated.log.zst", zstded(t, sample), Zstd},
		{"misnamed.log", gzipped(t, sample), Gzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.data, 0644))

			in, err := Open(path, nil)
			require.NoError(t, err)
			defer in.Close()

			assert.Equal(t, tt.want, in.Compression)
			assert.Equal(t, path, in.Name)

			got, err := io.ReadAll(in)
			require.NoError(t, err)
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestOpen_Stdin(t *testing.T) {
	for _, path := range []string{"", Stdin} {
		in, err := Open(path, strings.NewReader(sample))
		require.NoError(t, err)

		got, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, sample, string(got))
		assert.Equal(t, "stdin", in.Name)
		require.NoError(t, in.Close())
	}
}

func TestOpen_EmptyAndShortInput(t *testing.T) {
	for _, s := range []string{"", "x", "\x1f"} {
		in, err := Decode(strings.NewReader(s))
		require.NoError(t, err)
		assert.Equal(t, None, in.Compression)

		got, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, s, string(got))
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.log"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_CorruptGzip(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestFollow_CallsBackOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.log")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	var calls atomic.Int32
	called := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, FollowOptions{Debounce: 20 * time.Millisecond}, func(context.Context) error {
			calls.Add(1)
			called <- struct{}{}
			return nil
		})
	}()

	waitCall := func() {
		select {
		case <-called:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for follow callback")
		}
	}

	waitCall() // initial run

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(sample)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	waitCall()
	assert.GreaterOrEqual(t, calls.Load(), int32(2))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollow_MissingDirectory(t *testing.T) {
	err := Follow(context.Background(), filepath.Join(t.TempDir(), "gone", "x.log"), FollowOptions{}, func(context.Context) error {
		return nil
	})
	assert.Error(t, err)
}
