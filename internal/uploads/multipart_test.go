package uploads

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMultipartReaderRejectsContentType(t *testing.T) {
	tests := []string{
		"",
		"text/plain",
		"application/json; charset=utf-8",
		"multipart/mixed; boundary=abc",
		"multipart/form-data",
		"multipart/form-data; boundary=",
		"not a media type;;",
	}
	for _, ct := range tests {
		_, err := NewMultipartReader(strings.NewReader("anything"), ct)
		assert.ErrorIsf(t, err, ErrMalformedRequest, "content type %q", ct)
	}
}

func TestNewMultipartReaderCaseInsensitive(t *testing.T) {
	_, err := NewMultipartReader(strings.NewReader(""), "Multipart/Form-Data; boundary=xyz")
	assert.NoError(t, err)
}

func TestMultipartReaderSkipsFields(t *testing.T) {
	body, ct := multipartBody(t,
		testPart{field: "note", data: []byte("ignore me")},
		fileField("hello.txt", "text/plain; charset=utf-8", []byte("hello world")),
	)
	r, err := NewMultipartReader(body, ct)
	require.NoError(t, err)

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "file", ev.FieldName)
	assert.Equal(t, "hello.txt", ev.FileName)
	assert.Equal(t, "text/plain", ev.MIMEType)

	data, err := io.ReadAll(ev.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, 1, r.Fields())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMultipartReaderDefaultsMIME(t *testing.T) {
	body, ct := multipartBody(t, fileField("notes", "", []byte("x")))
	r, err := NewMultipartReader(body, ct)
	require.NoError(t, err)

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", ev.MIMEType)
}

func TestMultipartReaderUppercaseMIME(t *testing.T) {
	body, ct := multipartBody(t, fileField("a.png", "IMAGE/PNG", []byte("x")))
	r, err := NewMultipartReader(body, ct)
	require.NoError(t, err)

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "image/png", ev.MIMEType)
}

func TestMultipartReaderNoFiles(t *testing.T) {
	body, ct := multipartBody(t, testPart{field: "note", data: []byte("just a field")})
	r, err := NewMultipartReader(body, ct)
	require.NoError(t, err)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMultipartReaderDrainCountsExtraFiles(t *testing.T) {
	body, ct := multipartBody(t,
		fileField("one.txt", "text/plain", []byte("1")),
		fileField("two.txt", "text/plain", []byte("2")),
		testPart{field: "note", data: []byte("n")},
		fileField("three.txt", "text/plain", []byte("3")),
	)
	r, err := NewMultipartReader(body, ct)
	require.NoError(t, err)

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "one.txt", ev.FileName)

	require.NoError(t, r.Drain(context.Background()))
	assert.Equal(t, 2, r.Ignored())
}

func TestMultipartReaderTruncatedBody(t *testing.T) {
	body, ct := multipartBody(t, fileField("a.txt", "text/plain", bytes.Repeat([]byte("z"), 1000)))
	truncated := bytes.NewReader(body.Bytes()[:body.Len()/2])

	r, err := NewMultipartReader(truncated, ct)
	require.NoError(t, err)
	ev, err := r.Next()
	require.NoError(t, err)

	_, err = io.ReadAll(ev.Body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedRequest)
}
