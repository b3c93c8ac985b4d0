//go:build !linux

package main

func lockMemory() {}
