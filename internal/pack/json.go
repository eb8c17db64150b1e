package pack

import (
	"encoding/json"
	"io"
	"time"

	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

// jsonPack mirrors Pack with exported JSON tags, isomorphic to the
// records form: the same fields, round-trippable either way.
type jsonPack struct {
	Header      jsonHeader      `json:"header"`
	Notes       []jsonNote      `json:"notes"`
	Links       []Link          `json:"links"`
	Attachments []jsonAttachment `json:"attachments"`
}

type jsonHeader struct {
	FormatVersion   string    `json:"format_version"`
	StoreVersion    string    `json:"store_version"`
	CreatedAt       time.Time `json:"created_at"`
	SourceStore     string    `json:"source_store,omitempty"`
	NoteCount       int       `json:"note_count"`
	LinkCount       int       `json:"link_count"`
	AttachmentCount int       `json:"attachment_count"`
}

type jsonNote struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	Tags     []string   `json:"tags,omitempty"`
	Created  *time.Time `json:"created,omitempty"`
	Path     string     `json:"path,omitempty"`
	Body     string     `json:"body"`
	Sources  []Source   `json:"sources,omitempty"`
	Compacts []string   `json:"compacts,omitempty"`
	Value    *uint8     `json:"value,omitempty"`
}

type jsonAttachment struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

// EncodeJSON writes p as the isomorphic JSON form. []byte attachment
// data is base64-encoded automatically by encoding/json.
func EncodeJSON(w io.Writer, p Pack) error {
	jp := jsonPack{
		Header: jsonHeader{
			FormatVersion:   p.Header.FormatVersion,
			StoreVersion:    p.Header.StoreVersion,
			CreatedAt:       p.Header.CreatedAt,
			SourceStore:     p.Header.SourceStore,
			NoteCount:       len(p.Notes),
			LinkCount:       len(p.Links),
			AttachmentCount: len(p.Attachments),
		},
		Links: p.Links,
	}
	for _, n := range p.Notes {
		jp.Notes = append(jp.Notes, jsonNote{
			ID: n.ID, Type: n.Type, Title: n.Title, Tags: n.Tags, Created: n.Created,
			Path: n.Path, Body: n.Body, Sources: n.Sources, Compacts: n.Compacts, Value: n.Value,
		})
	}
	for _, a := range p.Attachments {
		jp.Attachments = append(jp.Attachments, jsonAttachment{
			Path: a.Path, Name: a.Name, ContentType: a.ContentType, Data: a.Data,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jp); err != nil {
		return qerrors.PackFormatf("encode pack json: %v", err)
	}
	return nil
}

// DecodeJSON parses the JSON form produced by EncodeJSON.
func DecodeJSON(r io.Reader) (*Pack, error) {
	var jp jsonPack
	if err := json.NewDecoder(r).Decode(&jp); err != nil {
		return nil, qerrors.PackFormatf("decode pack json: %v", err)
	}

	p := &Pack{
		Header: Header{
			FormatVersion:   jp.Header.FormatVersion,
			StoreVersion:    jp.Header.StoreVersion,
			CreatedAt:       jp.Header.CreatedAt,
			SourceStore:     jp.Header.SourceStore,
			NoteCount:       jp.Header.NoteCount,
			LinkCount:       jp.Header.LinkCount,
			AttachmentCount: jp.Header.AttachmentCount,
		},
		Links: jp.Links,
	}
	for _, n := range jp.Notes {
		p.Notes = append(p.Notes, Note{
			ID: n.ID, Type: n.Type, Title: n.Title, Tags: n.Tags, Created: n.Created,
			Path: n.Path, Body: n.Body, Sources: n.Sources, Compacts: n.Compacts, Value: n.Value,
		})
	}
	for _, a := range jp.Attachments {
		p.Attachments = append(p.Attachments, Attachment{
			Path: a.Path, Name: a.Name, ContentType: a.ContentType, Data: a.Data,
		})
	}

	if err := CheckVersion(p.Header); err != nil {
		return nil, err
	}
	return p, nil
}
