package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	mimeJSON = "application/json; charset=utf-8"
	mimeCBOR = "application/cbor"
	maxBody  = 8 << 20
)

var cborEnc cbor.EncMode

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoder mode: %v", err))
	}
}

func wantsCBOR(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), mimeCBOR)
}

// 文档注释：按 Accept 头写出响应
// 背景：默认 JSON；客户端声明 application/cbor 时以 CBOR 编码同一结构，减少大结果集的体积。
func writeResult(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("cache-control", "no-store")
	if wantsCBOR(r) {
		b, err := cborEnc.Marshal(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", mimeCBOR)
		w.WriteHeader(status)
		_, _ = w.Write(b)
		return
	}
	w.Header().Set("content-type", mimeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error" cbor:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeResult(w, r, status, errorBody{Error: err.Error()})
}

var errEmptyBody = errors.New("empty request body")

// 文档注释：读取请求体，Content-Type 为 application/cbor 时按 CBOR 解码，否则按 JSON
func readBody(r *http.Request, v any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errEmptyBody
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), mimeCBOR) {
		return cbor.Unmarshal(b, v)
	}
	return json.Unmarshal(b, v)
}
