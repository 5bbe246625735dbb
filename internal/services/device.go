package services

import (
	"os/exec"
	"strings"
)

// ResolveDevice maps a configured accelerator ("auto", "cuda", "cpu") to a
// concrete one. "auto" picks cuda when nvidia-smi is on PATH.
func ResolveDevice(device string) string {
	switch strings.ToLower(strings.TrimSpace(device)) {
	case "cuda", "gpu":
		return "cuda"
	case "cpu":
		return "cpu"
	default:
		if _, err := exec.LookPath("nvidia-smi"); err == nil {
			return "cuda"
		}
		return "cpu"
	}
}
