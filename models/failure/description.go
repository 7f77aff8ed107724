// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package failure

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Description is a human-readable explanation of a failure, with the
// contextual values that led to it.
type Description struct {
	Text   string
	Fields Fields
}

func NewDescription(text string, fields ...FieldFunc) Description {
	d := Description{
		Text: text,
	}
	for _, field := range fields {
		field(&d.Fields)
	}
	return d
}

func (d Description) String() string {
	if len(d.Fields) == 0 {
		return d.Text
	}
	return d.Text + " (" + d.Fields.String() + ")"
}

// MarshalZerologObject attaches the description to a log event, one key per
// field.
func (d Description) MarshalZerologObject(event *zerolog.Event) {
	event.Str("text", d.Text)
	for _, field := range d.Fields {
		event.Str(field.Key, field.Val)
	}
}

// Field is a formatted context value.
type Field struct {
	Key string
	Val string
}

type Fields []Field

func (f Fields) String() string {
	var b strings.Builder
	for i, field := range f {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(field.Key)
		b.WriteString(": ")
		b.WriteString(field.Val)
	}
	return b.String()
}

type FieldFunc func(*Fields)

func with(key string, val string) FieldFunc {
	return func(f *Fields) {
		*f = append(*f, Field{Key: key, Val: val})
	}
}

func WithErr(err error) FieldFunc {
	return with("error", err.Error())
}

func WithInt(key string, val int) FieldFunc {
	return with(key, strconv.Itoa(val))
}

func WithUint64(key string, val uint64) FieldFunc {
	return with(key, strconv.FormatUint(val, 10))
}

func WithString(key string, val string) FieldFunc {
	return with(key, val)
}
