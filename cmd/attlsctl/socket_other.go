//go:build !unix

package main

func checkStreamSocket(int) error {
	return nil
}
