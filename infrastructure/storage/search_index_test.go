package storage

import (
	"chatrooms/domain"
	"context"
	"log/slog"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func TestSearchIndex_Search_ScopedToRoom(t *testing.T) {
	req := require.New(t)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	defer writer.Close()

	index := NewSearchIndex(writer, slog.Default())
	messages := []domain.Message{
		{Room: "r1", Seq: 1, Kind: domain.KindText, Text: "sunset at the beach in Moalboal"},
		{Room: "r1", Seq: 2, Kind: domain.KindText, Text: "traffic is terrible today"},
		{Room: "r2", Seq: 1, Kind: domain.KindText, Text: "beach cleanup on saturday"},
		{Room: "r1", Seq: 3, Kind: domain.KindImage, ImageRef: "beach.png"},
	}
	for _, m := range messages {
		req.NoError(index.Index(m))
	}

	seqs, err := index.Search(context.Background(), "r1", "beach", 10)
	req.NoError(err)
	req.Equal([]uint64{1}, seqs)

	seqs, err = index.Search(context.Background(), "r2", "beach", 10)
	req.NoError(err)
	req.Equal([]uint64{1}, seqs)

	seqs, err = index.Search(context.Background(), "r1", "volcano", 10)
	req.NoError(err)
	req.Empty(seqs)
}
