// Package testutil provides mocks and a virtual-clock scheduler shared by
// package tests.
package testutil
