package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Status is the outcome carried by every response.
type Status string

const (
	// StatusOK means the file operation completed.
	StatusOK Status = "OK"
	// StatusError means the file operation could not complete.
	StatusError Status = "ERROR"
	// StatusFailed means the request was malformed or unknown and no
	// file operation ran.
	StatusFailed Status = "FAILED"
)

// Payload is one of FileList, FileContent or Message.
type Payload interface {
	isPayload()
}

// FileList is the payload of a LIST response.
type FileList []string

// FileContent is the payload of a GET response.
type FileContent struct {
	Name    string
	Content []byte
}

// Message is a human readable payload.
type Message string

func (FileList) isPayload()    {}
func (FileContent) isPayload() {}
func (Message) isPayload()     {}

// Result is a structured response.
type Result struct {
	Status  Status
	Payload Payload
}

func OK(p Payload) Result {
	return Result{Status: StatusOK, Payload: p}
}

func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Payload: Message(fmt.Sprintf(format, args...))}
}

func Failed(reason string) Result {
	return Result{Status: StatusFailed, Payload: Message(reason)}
}

// Text returns the message payload, or "" for other payloads.
func (r Result) Text() string {
	if m, ok := r.Payload.(Message); ok {
		return string(m)
	}
	return ""
}

type wireResult struct {
	Status   Status          `json:"status"`
	Data     json.RawMessage `json:"data,omitempty"`
	FileName *string         `json:"data_namafile,omitempty"`
	FileData *string         `json:"data_file,omitempty"`
}

// MarshalJSON encodes the result in the flat wire layout: "data" for
// lists and messages, "data_namafile"/"data_file" for file content.
func (r Result) MarshalJSON() ([]byte, error) {
	w := wireResult{Status: r.Status}

	switch p := r.Payload.(type) {
	case nil:
	case FileList:
		if p == nil {
			p = FileList{}
		}
		data, err := json.Marshal([]string(p))
		if err != nil {
			return nil, err
		}
		w.Data = data
	case Message:
		data, err := json.Marshal(string(p))
		if err != nil {
			return nil, err
		}
		w.Data = data
	case FileContent:
		name := p.Name
		encoded := base64.StdEncoding.EncodeToString(p.Content)
		w.FileName = &name
		w.FileData = &encoded
	default:
		return nil, fmt.Errorf("unsupported payload type %T", p)
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes a wire response, picking the payload variant
// from the keys present.
func (r *Result) UnmarshalJSON(b []byte) error {
	var w wireResult
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	r.Status = w.Status
	r.Payload = nil

	if w.FileName != nil {
		fc := FileContent{Name: *w.FileName}
		if w.FileData != nil {
			content, err := base64.StdEncoding.DecodeString(*w.FileData)
			if err != nil {
				return fmt.Errorf("decoding data_file: %w", err)
			}
			fc.Content = content
		}
		r.Payload = fc
		return nil
	}

	if len(w.Data) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(w.Data, &list); err == nil {
		r.Payload = FileList(list)
		return nil
	}
	var msg string
	if err := json.Unmarshal(w.Data, &msg); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	r.Payload = Message(msg)
	return nil
}

// Encode serializes the result as a response body, without terminator.
func Encode(r Result) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Failed("Exception: " + err.Error()))
	}
	return b
}

// Decode parses a response body.
func Decode(b []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}
