package pack

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwaldstein/qipu-sub000/internal/storeconfig"
)

func samplePack() Pack {
	created := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	value := uint8(80)
	return Pack{
		Header: Header{
			FormatVersion:   FormatVersion,
			StoreVersion:    storeconfig.StoreFormatVersion,
			CreatedAt:       created,
			SourceStore:     "/home/user/notes",
			NoteCount:       2,
			LinkCount:       1,
			AttachmentCount: 1,
		},
		Notes: []Note{
			{
				ID: "qp-1", Type: "permanent", Title: `A "quoted" title`,
				Tags: []string{"go", "search"}, Created: &created,
				Path: "notes/qp-1-a-quoted-title.md", Body: "hello world",
				Sources: []Source{{URL: "https://example.com", Title: "Example", Accessed: "2026-01-15"}},
				Value:   &value,
			},
			{
				ID: "qp-2", Type: "fleeting", Title: "Second note",
				Path: "notes/qp-2-second-note.md", Body: "body two",
			},
		},
		Links: []Link{
			{From: "qp-1", To: "qp-2", Type: "related", Inline: false},
		},
		Attachments: []Attachment{
			{Path: "diagrams/a.png", Name: "a.png", ContentType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
		},
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	p := samplePack()

	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, p))

	got, err := DecodeRecords(&buf)
	require.NoError(t, err)

	require.Len(t, got.Notes, 2)
	assert.Equal(t, p.Notes[0].ID, got.Notes[0].ID)
	assert.Equal(t, p.Notes[0].Title, got.Notes[0].Title)
	assert.Equal(t, p.Notes[0].Tags, got.Notes[0].Tags)
	assert.Equal(t, p.Notes[0].Body, got.Notes[0].Body)
	require.Len(t, got.Notes[0].Sources, 1)
	assert.Equal(t, p.Notes[0].Sources[0].URL, got.Notes[0].Sources[0].URL)
	require.NotNil(t, got.Notes[0].Value)
	assert.Equal(t, *p.Notes[0].Value, *got.Notes[0].Value)

	require.Len(t, got.Links, 1)
	assert.Equal(t, p.Links[0], got.Links[0])

	require.Len(t, got.Attachments, 1)
	assert.Equal(t, p.Attachments[0].Data, got.Attachments[0].Data)
}

func TestRecordsRoundTripPreservesSpacesInSourceStore(t *testing.T) {
	p := samplePack()
	p.Header.SourceStore = "/home/alice/my notes"

	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, p))

	got, err := DecodeRecords(&buf)
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/my notes", got.Header.SourceStore)
}

func TestRecordsRoundTripIsomorphicWithJSON(t *testing.T) {
	p := samplePack()

	var recordBuf, jsonBuf bytes.Buffer
	require.NoError(t, EncodeRecords(&recordBuf, p))
	require.NoError(t, EncodeJSON(&jsonBuf, p))

	fromRecords, err := DecodeRecords(&recordBuf)
	require.NoError(t, err)
	fromJSON, err := DecodeJSON(&jsonBuf)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Notes[0].ID, fromRecords.Notes[0].ID)
	assert.Equal(t, fromJSON.Notes[0].Title, fromRecords.Notes[0].Title)
	assert.Equal(t, fromJSON.Links, fromRecords.Links)
}

func TestCheckVersionRejectsHigherMajor(t *testing.T) {
	h := Header{FormatVersion: "v2.0", StoreVersion: storeconfig.StoreFormatVersion}
	err := CheckVersion(h)
	require.Error(t, err)
}

func TestCheckVersionAcceptsSameMajorDifferentMinor(t *testing.T) {
	h := Header{FormatVersion: "v1.9", StoreVersion: storeconfig.StoreFormatVersion}
	require.NoError(t, CheckVersion(h))
}

func TestDecodeRecordsRejectsMissingEnd(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("H version=v1.0 store_version=v1.0 created=2026-01-15T09:30:00Z source=- notes=0 links=0 attachments=0\n")
	_, err := DecodeRecords(&buf)
	require.Error(t, err)
}
