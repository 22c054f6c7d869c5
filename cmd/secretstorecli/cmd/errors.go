package cmd

import "errors"

const (
	LogMsgIncorrectArgsNumber = "incorrect number of arguments"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrIllegalPassword  = errors.New("illegal password, expect 6 to 40 characters of [0-9a-zA-Z@#$%^&]")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrWrongPassword    = errors.New("wrong password")
)
