package bootstrap

import (
	"errors"

	"github.com/papercomputeco/keepsake/pkg/project"
)

// SaveError turns an unsuccessful save result into an error.
func SaveError(r project.SaveResult) error {
	if r.Success {
		return nil
	}
	return resultError(r.Reason, r.Error)
}

// LoadError turns an unsuccessful load result into an error.
func LoadError(r project.LoadResult) error {
	if r.Success {
		return nil
	}
	return resultError(r.Reason, r.Error)
}

func resultError(reason, msg string) error {
	if reason != "" {
		return errors.New(reason)
	}
	if msg == "" {
		msg = "unknown error"
	}
	return errors.New(msg)
}
