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

import "net/http"

const (
	DomainConfig  Domain = "CONFIG"
	DomainServer  Domain = "SERVER"
	DomainZFS     Domain = "ZFS"
	DomainCommand Domain = "CMD"
	DomainMisc    Domain = "MISC"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

// Kind is the caller-facing failure class. Codes map onto a kind; callers
// branch on the kind, logs and API responses carry the code.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidName
	KindInvalidValue
	KindPermissionDenied
	KindBusy
	KindHasChildren
	KindPropertyUnsupported
	KindIOError
	// KindInvariantViolation marks a programming error: a type dispatch
	// failure, use of a released handle or of a closed registry.
	KindInvariantViolation
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindNotFound:            "NotFound",
	KindAlreadyExists:       "AlreadyExists",
	KindInvalidName:         "InvalidName",
	KindInvalidValue:        "InvalidValue",
	KindPermissionDenied:    "PermissionDenied",
	KindBusy:                "Busy",
	KindHasChildren:         "HasChildren",
	KindPropertyUnsupported: "PropertyUnsupported",
	KindIOError:             "IOError",
	KindInvariantViolation:  "InvariantViolation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Error code ranges:
// 1000-1099: Configuration errors
// 1100-1199: Server errors
// 1300-1399: Command execution
// 1600-1699: Misc errors
// 2000-2999: ZFS operations
const (
	// Configuration Errors (1000-1099)
	ConfigNotFound        = 1000 + iota // Config file not found
	ConfigInvalid                       // Invalid config format
	ConfigLoadFailed                    // Failed to load config
	ConfigWriteFailed                   // Failed to write config
	ConfigMarshalFailed                 // Config serialization failed
	ConfigUnmarshalFailed               // Config deserialization failed
)

const (
	// Server Errors (1100-1199)
	ServerStart             = 1100 + iota // Failed to start server
	ServerShutdown                        // Error during shutdown
	ServerRequestValidation               // Request validation failed
	ServerInternalError
)

const (
	// Command Execution (1300-1399)
	CommandNotFound     = 1300 + iota // Command not found
	CommandExecution                  // Execution failed
	CommandTimeout                    // Command timed out
	CommandPermission                 // Permission denied
	CommandInvalidInput               // Invalid command input
	CommandOutputParse                // Output parsing failed
	CommandPipe                       // Command pipe error
)

const (
	// Misc Errors (1600-1699)
	Misc = 1600 + iota
	NotFoundError
	LoggerError
)

const (
	// ZFS Operations (2000-2999)

	// Taxonomy codes. Each one carries its own kind.
	ZFSCommandFailed       = 2000 + iota // Opaque native failure
	ZFSNotFound                          // Dataset or pool does not exist
	ZFSAlreadyExists                     // Dataset or pool already exists
	ZFSInvalidName                       // Malformed dataset name
	ZFSInvalidValue                      // Bad property value
	ZFSPermissionDenied                  // Permission denied
	ZFSBusy                              // Dependent resource conflict
	ZFSHasChildren                       // Dataset has children
	ZFSPropertyUnsupported               // Property does not apply / unknown
	ZFSIOError                           // I/O error during operation
	ZFSInvariantViolation                // Type dispatch or ownership bug
	ZFSHandleClosed                      // Use of a disposed object
	ZFSRegistryClosed                    // Use of an object after registry close
	ZFSPreconditionFailed                // Operation not valid for this dataset type

	// Name validation codes
	ZFSNameLeadingSlash
	ZFSNameEmptyComponent
	ZFSNameTrailingSlash
	ZFSNameInvalidChar
	ZFSNameMultipleDelimiters // multiple '@'/'#' delimiters found
	ZFSNameNoLetter           // pool doesn't begin with a letter
	ZFSNameReserved
	ZFSNameTooLong
	ZFSNameSelfRef   // "."
	ZFSNameParentRef // ".."
	ZFSNameNoAtSign  // Missing "@" in snapshot
	ZFSNameNoPound   // Missing "#" in bookmark
	ZFSNameInvalid

	// Operation codes. These inherit the kind of the error they wrap.
	ZFSDatasetOpen
	ZFSDatasetList
	ZFSDatasetCreate
	ZFSDatasetDestroy
	ZFSDatasetRename
	ZFSDatasetClone
	ZFSDatasetPromote
	ZFSDatasetGetProperty
	ZFSDatasetSetProperty
	ZFSDatasetInheritProperty
	ZFSSnapshotFailed
	ZFSSnapshotRollback
	ZFSMountError
	ZFSShareError
	ZFSPoolCreate
	ZFSPoolDestroy
	ZFSPoolList
	ZFSPoolGetProperty
	ZFSPoolScrubFailed
)

type errorDefinition struct {
	message    string
	domain     Domain
	kind       Kind
	httpStatus int
}

var errorDefinitions = map[ErrorCode]errorDefinition{
	// Configuration errors
	ConfigNotFound:        {"Configuration file not found", DomainConfig, KindNotFound, http.StatusInternalServerError},
	ConfigInvalid:         {"Invalid configuration", DomainConfig, KindInvalidValue, http.StatusInternalServerError},
	ConfigLoadFailed:      {"Failed to load configuration", DomainConfig, KindIOError, http.StatusInternalServerError},
	ConfigWriteFailed:     {"Failed to write configuration", DomainConfig, KindIOError, http.StatusInternalServerError},
	ConfigMarshalFailed:   {"Failed to serialize configuration", DomainConfig, KindUnknown, http.StatusInternalServerError},
	ConfigUnmarshalFailed: {"Failed to parse configuration", DomainConfig, KindUnknown, http.StatusInternalServerError},

	// Server errors
	ServerStart:             {"Failed to start the server", DomainServer, KindIOError, http.StatusInternalServerError},
	ServerShutdown:          {"Error during server shutdown", DomainServer, KindIOError, http.StatusInternalServerError},
	ServerRequestValidation: {"Request validation failed", DomainServer, KindInvalidValue, http.StatusBadRequest},
	ServerInternalError:     {"Internal server error", DomainServer, KindUnknown, http.StatusInternalServerError},

	// Command errors
	CommandNotFound:     {"Command not found", DomainCommand, KindInvariantViolation, http.StatusInternalServerError},
	CommandExecution:    {"Command execution failed", DomainCommand, KindIOError, http.StatusInternalServerError},
	CommandTimeout:      {"Command execution timed out", DomainCommand, KindIOError, http.StatusGatewayTimeout},
	CommandPermission:   {"Permission denied for command", DomainCommand, KindPermissionDenied, http.StatusForbidden},
	CommandInvalidInput: {"Invalid command input", DomainCommand, KindInvalidValue, http.StatusBadRequest},
	CommandOutputParse:  {"Failed to parse command output", DomainCommand, KindIOError, http.StatusInternalServerError},
	CommandPipe:         {"Command pipe error", DomainCommand, KindIOError, http.StatusInternalServerError},

	// Misc errors
	Misc:          {"Miscellaneous error", DomainMisc, KindUnknown, http.StatusInternalServerError},
	NotFoundError: {"Not found", DomainMisc, KindNotFound, http.StatusNotFound},
	LoggerError:   {"Logger error", DomainMisc, KindUnknown, http.StatusInternalServerError},

	// ZFS taxonomy
	ZFSCommandFailed:       {"ZFS command execution failed", DomainZFS, KindIOError, http.StatusInternalServerError},
	ZFSNotFound:            {"Dataset or pool not found", DomainZFS, KindNotFound, http.StatusNotFound},
	ZFSAlreadyExists:       {"Dataset or pool already exists", DomainZFS, KindAlreadyExists, http.StatusConflict},
	ZFSInvalidName:         {"Invalid dataset name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSInvalidValue:        {"Invalid property value", DomainZFS, KindInvalidValue, http.StatusBadRequest},
	ZFSPermissionDenied:    {"Permission denied for ZFS operation", DomainZFS, KindPermissionDenied, http.StatusForbidden},
	ZFSBusy:                {"Dataset is busy", DomainZFS, KindBusy, http.StatusConflict},
	ZFSHasChildren:         {"Dataset has children", DomainZFS, KindHasChildren, http.StatusConflict},
	ZFSPropertyUnsupported: {"Property not supported", DomainZFS, KindPropertyUnsupported, http.StatusBadRequest},
	ZFSIOError:             {"ZFS I/O operation failed", DomainZFS, KindIOError, http.StatusInternalServerError},
	ZFSInvariantViolation:  {"Internal invariant violated", DomainZFS, KindInvariantViolation, http.StatusInternalServerError},
	ZFSHandleClosed:        {"Dataset handle already released", DomainZFS, KindInvariantViolation, http.StatusInternalServerError},
	ZFSRegistryClosed:      {"Registry is closed", DomainZFS, KindInvariantViolation, http.StatusServiceUnavailable},
	ZFSPreconditionFailed:  {"Operation not valid for dataset type", DomainZFS, KindInvariantViolation, http.StatusBadRequest},

	// Name validation
	ZFSNameLeadingSlash:       {"Leading slash in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameEmptyComponent:     {"Empty component in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameTrailingSlash:      {"Trailing slash in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameInvalidChar:        {"Invalid character in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameMultipleDelimiters: {"Multiple delimiters in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameNoLetter:           {"Name must begin with a letter", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameReserved:           {"Name is reserved", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameTooLong:            {"Name is too long", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameSelfRef:            {"Self reference in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameParentRef:          {"Parent reference in name", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameNoAtSign:           {"Snapshot delimiter '@' misplaced", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameNoPound:            {"Bookmark delimiter '#' misplaced", DomainZFS, KindInvalidName, http.StatusBadRequest},
	ZFSNameInvalid:            {"Invalid name", DomainZFS, KindInvalidName, http.StatusBadRequest},

	// Operations
	ZFSDatasetOpen:            {"Failed to open dataset", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetList:            {"Failed to list datasets", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetCreate:          {"Failed to create dataset", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetDestroy:         {"Failed to destroy dataset", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetRename:          {"Failed to rename dataset", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetClone:           {"Failed to clone snapshot", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetPromote:         {"Failed to promote clone", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetGetProperty:     {"Failed to get property", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetSetProperty:     {"Failed to set property", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSDatasetInheritProperty: {"Failed to inherit property", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSSnapshotFailed:         {"Failed to create snapshot", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSSnapshotRollback:       {"Failed to roll back snapshot", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSMountError:             {"ZFS mount operation failed", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSShareError:             {"ZFS share operation failed", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSPoolCreate:             {"Failed to create pool", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSPoolDestroy:            {"Failed to destroy pool", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSPoolList:               {"Failed to list pools", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSPoolGetProperty:        {"Failed to get pool property", DomainZFS, KindUnknown, http.StatusInternalServerError},
	ZFSPoolScrubFailed:        {"Failed to scrub pool", DomainZFS, KindUnknown, http.StatusInternalServerError},
}

// kindStatus is used when an operation code inherits its kind from a wrapped
// error and the wrapped error's status is more specific.
var kindStatus = map[Kind]int{
	KindNotFound:            http.StatusNotFound,
	KindAlreadyExists:       http.StatusConflict,
	KindInvalidName:         http.StatusBadRequest,
	KindInvalidValue:        http.StatusBadRequest,
	KindPermissionDenied:    http.StatusForbidden,
	KindBusy:                http.StatusConflict,
	KindHasChildren:         http.StatusConflict,
	KindPropertyUnsupported: http.StatusBadRequest,
	KindIOError:             http.StatusInternalServerError,
	KindInvariantViolation:  http.StatusInternalServerError,
}
