package repositories

import "errors"

type ErrNotFound struct {
}

func (e *ErrNotFound) Error() string {
	return "not found"
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

type ErrVersionConflict struct {
	GameID  string
	Version int64
}

func (e *ErrVersionConflict) Error() string {
	return "game " + e.GameID + " was modified concurrently"
}

func IsVersionConflict(err error) bool {
	var target *ErrVersionConflict
	return errors.As(err, &target)
}
