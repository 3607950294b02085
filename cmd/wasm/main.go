//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
)

// fingerprintClip hashes the bytes of one clip exactly as the server does,
// so a front end can skip uploading content the session already holds.
// Returns: {error: number, data: string}
func fingerprintClip(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeResponse(ErrorInvalidArgs, "Expected 1 argument: Uint8Array")
	}

	buf := args[0]
	if buf.Type() != js.TypeObject || !buf.InstanceOf(js.Global().Get("Uint8Array")) {
		return makeResponse(ErrorInvalidArgs, "argument must be a Uint8Array")
	}

	data := make([]byte, buf.Get("length").Int())
	if n := js.CopyBytesToGo(data, buf); n != len(data) {
		return makeResponse(ErrorInvalidArgs, fmt.Sprintf("copied %d of %d bytes", n, len(data)))
	}

	return makeResponse(ErrorNone, ingest.Fingerprint(data))
}

// isDuplicate reports whether a fingerprint is among the known ones.
// Args: fingerprint string, known string[]
func isDuplicate(this js.Value, args []js.Value) any {
	if len(args) < 2 || args[0].Type() != js.TypeString || args[1].Type() != js.TypeObject {
		return makeResponse(ErrorInvalidArgs, "Expected 2 arguments: fingerprint, knownFingerprints")
	}
	fp := args[0].String()
	known := args[1]
	for i := 0; i < known.Length(); i++ {
		if known.Index(i).String() == fp {
			return makeResponse(ErrorNone, true)
		}
	}
	return makeResponse(ErrorNone, false)
}

func makeResponse(errorCode int, data any) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", data)
	return result
}

func main() {
	console := js.Global().Get("console")

	js.Global().Set("quizmixFingerprint", js.FuncOf(fingerprintClip))
	js.Global().Set("quizmixIsDuplicate", js.FuncOf(isDuplicate))

	if window := js.Global().Get("window"); !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("quizmixReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "QuizMix WASM: window object is undefined")
	}

	if !console.IsUndefined() {
		console.Call("log", "QuizMix WASM module ready")
	}

	select {}
}
