package cache

import (
	"bytes"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestResponseCache_SetGet(t *testing.T) {
	rc := NewResponseCache(8<<20, 0)
	faker := gofakeit.New(7)

	key := Key([]byte("analysis"), []byte(faker.LoremIpsumSentence(10)))
	value := []byte(faker.LoremIpsumParagraph(2, 4, 8, " "))

	_, found := rc.Get(key)
	assert.False(t, found)

	require.True(t, rc.Set(key, value))
	got, found := rc.Get(key)
	require.True(t, found)
	assert.Equal(t, value, got)
	assert.Equal(t, int64(1), rc.EntryCount())

	rc.Clear()
	_, found = rc.Get(key)
	assert.False(t, found)
}

func TestResponseCache_TooLarge(t *testing.T) {
	// freecache refuses entries larger than 1/1024 of the arena
	rc := NewResponseCache(512*1024, 0)
	assert.False(t, rc.Set([]byte("k"), bytes.Repeat([]byte("x"), 4096)))
}

func TestKey(t *testing.T) {
	a := Key([]byte("ab"), []byte("c"))
	b := Key([]byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
	assert.Equal(t, a, Key([]byte("ab"), []byte("c")))
	assert.NotEqual(t, Key(nil), Key([]byte{}, []byte{}))
}
