//go:generate go run go.uber.org/mock/mockgen -source=search_index.go -destination=../../mocks/mock_search_index.go -package=mocks
package storage

import (
	"chatrooms/domain"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/blugelabs/bluge"
)

const (
	fieldContent = "content"
	fieldRoom    = "room"
	fieldSeq     = "seq"
	fieldLang    = "lang"
)

type ISearchIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]uint64, error)
}

// SearchIndex keeps a full-text index of text messages. Badger stays the
// source of truth: hits only carry the sequence number of the message.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(message domain.Message) error {
	if message.Kind != domain.KindText {
		return nil
	}
	doc := bluge.NewDocument(fmt.Sprintf("%s:%020d", message.Room, message.Seq)).
		AddField(bluge.NewTextField(fieldContent, message.Text)).
		AddField(bluge.NewKeywordField(fieldRoom, string(message.Room))).
		AddField(bluge.NewKeywordField(fieldSeq, strconv.FormatUint(message.Seq, 10)).StoreValue())
	if message.Lang != "" {
		doc.AddField(bluge.NewKeywordField(fieldLang, message.Lang))
	}
	return s.writer.Update(doc.ID(), doc)
}

// Search returns the sequence numbers of the best matching messages of a room.
func (s *SearchIndex) Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]uint64, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("unable to close search reader", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent)).
		AddMust(bluge.NewTermQuery(string(room)).SetField(fieldRoom))
	request := bluge.NewTopNSearch(limit, q)

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var seqs []uint64
	match, err := matches.Next()
	for err == nil && match != nil {
		var parseErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != fieldSeq {
				return true
			}
			var seq uint64
			seq, parseErr = strconv.ParseUint(string(value), 10, 64)
			if parseErr == nil {
				seqs = append(seqs, seq)
			}
			return false
		})
		if err == nil {
			err = parseErr
		}
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return seqs, nil
}
