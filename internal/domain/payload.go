package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const payloadVersion = 1

var (
	// ErrEmptyPayload ошибка пустого содержимого пачки.
	ErrEmptyPayload = errors.New("empty batch payload")
	// ErrPayloadVersion ошибка неизвестной версии формата.
	ErrPayloadVersion = errors.New("unsupported batch payload version")
)

type payloadDoc struct {
	Version int             `json:"version"`
	Notices []payloadNotice `json:"notices"`
}

type payloadNotice struct {
	Recipient    uuid.UUID              `json:"recipient"`
	Label        string                 `json:"label"`
	ExtraContext map[string]interface{} `json:"extra_context,omitempty"`
	Sender       string                 `json:"sender,omitempty"`
}

// EncodePayload сериализует упорядоченный список уведомлений.
func EncodePayload(notices []Notice) ([]byte, error) {
	doc := payloadDoc{Version: payloadVersion, Notices: make([]payloadNotice, 0, len(notices))}
	for _, n := range notices {
		doc.Notices = append(doc.Notices, payloadNotice(n))
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode batch payload: %w", err)
	}
	return data, nil
}

// DecodePayload восстанавливает список уведомлений в исходном порядке.
// Числа в ExtraContext возвращаются как json.Number.
func DecodePayload(data []byte) ([]Notice, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc payloadDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode batch payload: %w", err)
	}
	if doc.Version != payloadVersion {
		return nil, fmt.Errorf("%w: %d", ErrPayloadVersion, doc.Version)
	}

	notices := make([]Notice, 0, len(doc.Notices))
	for i, pn := range doc.Notices {
		if pn.Label == "" || pn.Recipient == uuid.Nil {
			return nil, fmt.Errorf("decode batch payload: notice %d has no label or recipient", i)
		}
		notices = append(notices, Notice(pn))
	}
	return notices, nil
}
