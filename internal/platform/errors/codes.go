// Package errors provides coded domain errors for the class factory.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Template errors
	CodeTemplateNameRequired Code = "TEMPLATE_NAME_REQUIRED"
	CodeDefinitionNotFound   Code = "DEFINITION_NOT_FOUND"

	// Instantiation errors
	CodeStorageProvision Code = "STORAGE_PROVISION_FAILED"
	CodeBind             Code = "BIND_FAILED"
	CodeExtension        Code = "EXTENSION_FAILED"

	// Manifest errors
	CodeManifestInvalid Code = "MANIFEST_INVALID"
)

// GRPCCode maps domain codes to gRPC status codes. Commands derive their
// exit status from it.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeTemplateNameRequired,
		CodeManifestInvalid:
		return codes.InvalidArgument

	case CodeDefinitionNotFound:
		return codes.NotFound

	case CodeBind,
		CodeExtension:
		return codes.FailedPrecondition

	default:
		return codes.Internal
	}
}
