/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// KitError is the structured error carried across every zfskit layer.
// It replaces the native "last error" slot: the code, the action that
// failed and the native description travel together with the failure.
type KitError struct {
	Code       ErrorCode         `json:"code"`
	Domain     Domain            `json:"domain"`
	Kind       Kind              `json:"-"`
	KindName   string            `json:"kind"`
	Message    string            `json:"message"`
	Action     string            `json:"action,omitempty"`
	Details    string            `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	cause      error
}

func (e *KitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s-%d] %s", e.Domain, e.Code, e.Message)
	if e.Action != "" {
		fmt.Fprintf(&b, " (%s)", e.Action)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	return b.String()
}

func (e *KitError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error so calls
// can be chained.
func (e *KitError) WithMetadata(key, value string) *KitError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// WithAction records the native action that failed, e.g. "destroy 'tank/a'".
func (e *KitError) WithAction(action string) *KitError {
	e.Action = action
	return e
}

func lookup(code ErrorCode) errorDefinition {
	def, ok := errorDefinitions[code]
	if !ok {
		return errorDefinition{"Unknown error", DomainMisc, KindUnknown, http.StatusInternalServerError}
	}
	return def
}

// New creates a KitError for code with details as the free-form description.
func New(code ErrorCode, details string) *KitError {
	def := lookup(code)
	return &KitError{
		Code:       code,
		Domain:     def.domain,
		Kind:       def.kind,
		KindName:   def.kind.String(),
		Message:    def.message,
		Details:    details,
		HTTPStatus: def.httpStatus,
		Metadata:   make(map[string]string),
	}
}

// Wrap wraps err under code. When code is an operation code without a kind
// of its own, the kind, action and status of a wrapped KitError are kept so
// callers still see NotFound, Busy etc.
func Wrap(err error, code ErrorCode) *KitError {
	if err == nil {
		return nil
	}
	out := New(code, err.Error())
	out.cause = err

	var inner *KitError
	if stderrors.As(err, &inner) {
		out.Details = inner.Details
		if out.Kind == KindUnknown {
			out.Kind = inner.Kind
			out.KindName = inner.KindName
			if s, ok := kindStatus[inner.Kind]; ok {
				out.HTTPStatus = s
			}
		}
		if out.Action == "" {
			out.Action = inner.Action
		}
		if len(inner.Metadata) > 0 {
			merged := maps.Clone(inner.Metadata)
			maps.Copy(merged, out.Metadata)
			out.Metadata = merged
		}
	}
	return out
}

// NewCommandError reports a failed native command invocation. The stderr
// text is classified into a kind so callers can branch without parsing it.
func NewCommandError(cmd string, exitCode int, stderr string) *KitError {
	action, reason := SplitNativeMessage(stderr)
	code := Classify(reason)
	e := New(code, reason)
	e.Action = action
	e.WithMetadata("command", cmd).
		WithMetadata("exit_code", fmt.Sprintf("%d", exitCode)).
		WithMetadata("stderr", strings.TrimSpace(stderr))
	return e
}

// KindOf reports the kind of err, or KindUnknown for non-KitErrors.
func KindOf(err error) Kind {
	var ke *KitError
	if stderrors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// GetCode returns the outermost error code, or 0 for non-KitErrors.
func GetCode(err error) ErrorCode {
	var ke *KitError
	if stderrors.As(err, &ke) {
		return ke.Code
	}
	return 0
}

// Is and As are re-exported so callers need only this package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
