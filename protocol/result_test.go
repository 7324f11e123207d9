package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWireLayout(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name:   "empty list",
			result: OK(FileList(nil)),
			want:   `{"status":"OK","data":[]}`,
		},
		{
			name:   "list",
			result: OK(FileList{"a.txt", "b.bin"}),
			want:   `{"status":"OK","data":["a.txt","b.bin"]}`,
		},
		{
			name:   "error message",
			result: Errorf("File %s not found", "missing.txt"),
			want:   `{"status":"ERROR","data":"File missing.txt not found"}`,
		},
		{
			name:   "failed",
			result: Failed("Unrecognized command"),
			want:   `{"status":"FAILED","data":"Unrecognized command"}`,
		},
		{
			name:   "file content",
			result: OK(FileContent{Name: "test.txt", Content: []byte("hello")}),
			want:   `{"status":"OK","data_namafile":"test.txt","data_file":"aGVsbG8="}`,
		},
		{
			name:   "empty file content keeps both keys",
			result: OK(FileContent{Name: "empty.txt"}),
			want:   `{"status":"OK","data_namafile":"empty.txt","data_file":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(Encode(tt.result)))
		})
	}
}

func TestDecodePicksPayloadVariant(t *testing.T) {
	r, err := Decode([]byte(`{"status":"OK","data_namafile":"x.bin","data_file":"AAEC"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, FileContent{Name: "x.bin", Content: []byte{0, 1, 2}}, r.Payload)

	r, err = Decode([]byte(`{"status":"OK","data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, FileList{}, r.Payload)

	r, err = Decode([]byte(`{"status":"ERROR","data":"connection error: refused"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "connection error: refused", r.Text())
}

func TestDecodeRejectsBadContent(t *testing.T) {
	_, err := Decode([]byte(`{"status":"OK","data_namafile":"x","data_file":"%%%"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
