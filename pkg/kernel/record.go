/*
Copyright © 2021 GUILLAUME FOURNIER

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kernel

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Record describes a traced syscall
type Record struct {
	PID       int       `json:"pid"`
	Comm      string    `json:"comm"`
	Syscall   string    `json:"syscall"`
	Ret       int       `json:"ret"`
	HasRet    bool      `json:"has_ret"`
	Timestamp time.Time `json:"timestamp"`
}

func (r Record) head() string {
	return fmt.Sprintf("TRACE: pid = %d | command name = %s | syscall = %s", r.PID, r.Comm, r.Syscall)
}

func (r Record) tail() string {
	return fmt.Sprintf(" | return value = %d", r.Ret)
}

func (r Record) String() string {
	if r.HasRet {
		return r.head() + r.tail()
	}
	return r.head()
}

// Sink receives trace records. Begin opens a record before the syscall runs, End completes it with the syscall
// result. Emit delivers a complete record at once.
type Sink interface {
	Begin(r Record)
	End(r Record)
	Emit(r Record)
}

// ConsoleSink writes trace records as text lines. A record opened with Begin is held until End so that each line is
// written in one piece, even when the syscall blocked in between.
type ConsoleSink struct {
	sync.Mutex
	w       io.Writer
	pending map[int]string
}

// NewConsoleSink returns a new ConsoleSink writing to w
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{
		w:       w,
		pending: make(map[int]string),
	}
}

// Begin opens a record
func (cs *ConsoleSink) Begin(r Record) {
	cs.Lock()
	defer cs.Unlock()
	cs.pending[r.PID] = r.head()
}

// End completes a record opened with Begin
func (cs *ConsoleSink) End(r Record) {
	cs.Lock()
	defer cs.Unlock()
	head, ok := cs.pending[r.PID]
	if !ok {
		head = r.head()
	}
	delete(cs.pending, r.PID)
	cs.writeLine(head + r.tail())
}

// Emit writes a complete record
func (cs *ConsoleSink) Emit(r Record) {
	cs.Lock()
	defer cs.Unlock()
	cs.writeLine(r.String())
}

func (cs *ConsoleSink) writeLine(line string) {
	if _, err := fmt.Fprintln(cs.w, line); err != nil {
		logrus.Errorf("failed to write trace record: %s", err)
	}
}

// JSONSink encodes each trace record as a JSON object
type JSONSink struct {
	sync.Mutex
	encoder *json.Encoder
}

// NewJSONSink returns a new JSONSink writing to w
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{
		encoder: json.NewEncoder(w),
	}
}

// Begin is a no-op, the record is encoded once complete
func (js *JSONSink) Begin(r Record) {}

// End encodes a completed record
func (js *JSONSink) End(r Record) {
	js.Emit(r)
}

// Emit encodes a record
func (js *JSONSink) Emit(r Record) {
	js.Lock()
	defer js.Unlock()
	if err := js.encoder.Encode(r); err != nil {
		logrus.Errorln(err)
	}
}
