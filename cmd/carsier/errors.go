// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/carsier/carsier/internal/config"
	"github.com/carsier/carsier/internal/dag"
	"github.com/carsier/carsier/internal/filecache"
	"github.com/carsier/carsier/internal/importtree"
	"github.com/carsier/carsier/internal/issue"
	"github.com/carsier/carsier/internal/modpath"
	"github.com/carsier/carsier/internal/registry"
	"github.com/carsier/carsier/internal/target"
	"github.com/carsier/carsier/internal/toolchain"
	"github.com/carsier/carsier/pkg/carsierfile"
)

type (
	// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
	ExitError struct {
		Code int
		Err  error
	}

	// ServiceError carries the issue catalog entry explaining an error.
	// Always create via newServiceError.
	ServiceError struct {
		// Err is the underlying error (must not be nil).
		Err error
		// IssueID selects the catalog page; zero renders none.
		IssueID issue.Id
	}
)

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the catalog page of svcErr, if it has one.
func renderServiceError(stderr io.Writer, svcErr *ServiceError) {
	if svcErr == nil || svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// classifyError maps a command failure to the catalog entry explaining it.
// Zero means no entry applies.
func classifyError(err error) issue.Id {
	var (
		callErr  *toolchain.CallError
		cycleErr *dag.CycleError
		syntax   *importtree.SyntaxError
	)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, carsierfile.ErrNotFound):
		return issue.ProjectFileNotFoundId
	case errors.Is(err, carsierfile.ErrInvalid):
		return issue.ProjectFileInvalidId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.As(err, &syntax):
		return issue.ImportSyntaxErrorId
	case errors.Is(err, modpath.ErrDepthOutOfRange):
		return issue.ModuleDepthId
	case errors.Is(err, target.ErrEntryPointNotFound):
		return issue.EntryPointNotFoundId
	case errors.Is(err, target.ErrNoTargets):
		return issue.NoTargetsId
	case errors.Is(err, registry.ErrManifestNotFound):
		return issue.ManifestNotFoundId
	case errors.As(err, &callErr) && callErr.Code < 0:
		return issue.ToolNotFoundId
	case errors.Is(err, toolchain.ErrToolFailed):
		return issue.ToolFailedId
	case errors.Is(err, filecache.ErrLocked):
		return issue.WriteLockHeldId
	case errors.As(err, &cycleErr):
		return issue.ImportCycleId
	default:
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.Operation == "load configuration" {
			return issue.ConfigLoadFailedId
		}
		return 0
	}
}

// wrapError attaches the catalog entry of err, if any.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if id := classifyError(err); id != 0 {
		return newServiceError(err, id)
	}
	return err
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
