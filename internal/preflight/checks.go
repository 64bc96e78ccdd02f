// Package preflight provides startup validation checks for the DVB device tree.
package preflight

import (
	"fmt"
	"os"
	"time"
)

// defaultDevRoot is where the Linux DVB subsystem exposes device nodes.
const defaultDevRoot = "/dev/dvb"

// minBudgetSeconds is the per-channel measurement budget below which rate
// readings get noticeably noisy.
const minBudgetSeconds = 5

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Message != "" {
		return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
	}
	return fmt.Sprintf("  %s %s: %d (need %d)", status, c.Name, c.Actual, c.Required)
}

// RunAll executes all preflight checks for the selected adapter and tuner.
func RunAll(adapter, tuner int, budget time.Duration) *Result {
	return runAll(defaultDevRoot, adapter, tuner, budget)
}

func runAll(devRoot string, adapter, tuner int, budget time.Duration) *Result {
	result := &Result{
		Checks: make([]Check, 0, 5),
		Passed: true,
	}

	// Adapter directory check
	dirCheck := checkAdapterDir(devRoot, adapter)
	result.Checks = append(result.Checks, dirCheck)
	if !dirCheck.Passed {
		result.Passed = false
	}

	// Device nodes, opened the way the meter opens them
	base := fmt.Sprintf("%s/adapter%d", devRoot, adapter)

	frontendCheck := checkDeviceNode("frontend_device", fmt.Sprintf("%s/frontend%d", base, tuner), os.O_RDWR)
	result.Checks = append(result.Checks, frontendCheck)
	if !frontendCheck.Passed {
		result.Passed = false
	}

	demuxCheck := checkDeviceNode("demux_device", fmt.Sprintf("%s/demux%d", base, tuner), os.O_RDWR)
	result.Checks = append(result.Checks, demuxCheck)
	if !demuxCheck.Passed {
		result.Passed = false
	}

	dvrCheck := checkDeviceNode("dvr_device", fmt.Sprintf("%s/dvr%d", base, tuner), os.O_RDONLY)
	result.Checks = append(result.Checks, dvrCheck)
	if !dvrCheck.Passed {
		result.Passed = false
	}

	// Budget check (warning only)
	budgetCheck := checkTimeBudget(budget)
	result.Checks = append(result.Checks, budgetCheck)
	// Don't fail on a thin budget

	return result
}

// checkAdapterDir verifies the adapter directory exists.
func checkAdapterDir(devRoot string, adapter int) Check {
	path := fmt.Sprintf("%s/adapter%d", devRoot, adapter)

	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "adapter_directory",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", path, err),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "adapter_directory",
			Passed:  false,
			Message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	return Check{
		Name:    "adapter_directory",
		Passed:  true,
		Message: path,
	}
}

// checkDeviceNode verifies a device node can be opened with the access the
// meter needs. The node is closed again immediately.
func checkDeviceNode(name, path string, flag int) Check {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return Check{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("cannot open %s: %v", path, err),
		}
	}
	f.Close()

	mode := "read-write"
	if flag == os.O_RDONLY {
		mode = "read-only"
	}
	return Check{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("%s (%s)", path, mode),
	}
}

// checkTimeBudget warns when the per-channel measurement budget is thin.
// A channel needs a few seconds of draining for the rate to mean anything.
func checkTimeBudget(budget time.Duration) Check {
	actual := int(budget.Seconds())

	return Check{
		Name:     "time_budget",
		Required: minBudgetSeconds,
		Actual:   actual,
		Passed:   true, // Thin budgets degrade readings, they don't break them
		Warning:  actual < minBudgetSeconds,
		Message:  fmt.Sprintf("%s per channel (recommend at least %ds)", budget, minBudgetSeconds),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "adapter_directory":
		return "check that the tuner is connected and its driver is loaded (dmesg | grep -i dvb)"
	case "frontend_device", "demux_device", "dvr_device":
		return "verify the tuner number and add the user to the video group (usermod -aG video $USER)"
	default:
		return "see documentation"
	}
}
