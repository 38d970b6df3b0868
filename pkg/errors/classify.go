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

import "strings"

// reasonPatterns maps fragments of the native failure description onto the
// taxonomy. Order matters: the first match wins.
var reasonPatterns = []struct {
	fragment string
	code     ErrorCode
}{
	{"permission denied", ZFSPermissionDenied},
	{"operation not permitted", ZFSPermissionDenied},
	{"must be run as root", ZFSPermissionDenied},
	{"has children", ZFSHasChildren},
	{"has dependent clones", ZFSBusy},
	{"more recent snapshots", ZFSBusy},
	{"already mounted", ZFSBusy},
	{"not currently mounted", ZFSInvalidValue},
	{"not a cloned filesystem", ZFSInvalidValue},
	{"does not apply to pools", ZFSInvalidValue},
	{"not applicable to datasets of this type", ZFSNotFound},
	{"source and target pools differ", ZFSInvalidValue},
	{"must be part of same dataset", ZFSInvalidValue},
	{"descendant of current dataset", ZFSInvalidValue},
	{"missing volume size", ZFSInvalidValue},
	{"parent is not a filesystem", ZFSInvalidValue},
	{"not initialized", ZFSInvariantViolation},
	{"is busy", ZFSBusy},
	{"device busy", ZFSBusy},
	{"dataset is busy", ZFSBusy},
	{"does not apply to datasets of this type", ZFSPropertyUnsupported},
	{"invalid property", ZFSPropertyUnsupported},
	{"unsupported property", ZFSPropertyUnsupported},
	{"not supported", ZFSPropertyUnsupported},
	{"read-only", ZFSPropertyUnsupported},
	{"cannot be inherited", ZFSPropertyUnsupported},
	{"already exists", ZFSAlreadyExists},
	{"does not exist", ZFSNotFound},
	{"no such pool", ZFSNotFound},
	{"no such dataset", ZFSNotFound},
	{"not found", ZFSNotFound},
	{"invalid character", ZFSInvalidName},
	{"invalid name", ZFSInvalidName},
	{"name is too long", ZFSInvalidName},
	{"missing dataset name", ZFSInvalidName},
	{"leading slash", ZFSInvalidName},
	{"trailing slash", ZFSInvalidName},
	{"empty component", ZFSInvalidName},
	{"multiple '@'", ZFSInvalidName},
	{"must be one of", ZFSInvalidValue},
	{"must be a number", ZFSInvalidValue},
	{"bad numeric value", ZFSInvalidValue},
	{"invalid value", ZFSInvalidValue},
	{"is too large", ZFSInvalidValue},
	{"is too small", ZFSInvalidValue},
	{"out of range", ZFSInvalidValue},
	{"i/o error", ZFSIOError},
	{"input/output error", ZFSIOError},
}

// Classify maps a native failure description to a taxonomy code. Unknown
// descriptions become ZFSCommandFailed.
func Classify(reason string) ErrorCode {
	r := strings.ToLower(reason)
	for _, p := range reasonPatterns {
		if strings.Contains(r, p.fragment) {
			return p.code
		}
	}
	return ZFSCommandFailed
}

// SplitNativeMessage splits "cannot <action>: <reason>" into its parts. The
// first line starting with "cannot " is used. When the text has no such
// shape the whole message becomes the reason.
func SplitNativeMessage(stderr string) (action, reason string) {
	msg := strings.TrimSpace(stderr)
	lines := strings.Split(msg, "\n")
	for i := range lines {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "cannot ") {
			msg = line
			break
		}
	}

	if rest, ok := strings.CutPrefix(msg, "cannot "); ok {
		if idx := strings.Index(rest, ": "); idx >= 0 {
			return rest[:idx], strings.TrimSpace(rest[idx+2:])
		}
		return rest, ""
	}
	return "", msg
}

// NewNative builds the error a native call would have produced for action
// with reason. Used by gateways that do not shell out.
func NewNative(action, reason string) *KitError {
	e := New(Classify(reason), reason)
	e.Action = action
	return e
}
