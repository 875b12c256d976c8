// cmd/tools/registry-check/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"club-tickets/internal/common/validation"
	"club-tickets/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	checkCmd := flag.NewFlagSet("check-vars", flag.ExitOnError)
	checkPath := checkCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	taskType := checkCmd.String("taskType", "", "Task type whose input schema is used")
	vars := checkCmd.String("vars", "", "Job variables as a JSON object")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "check-vars":
		checkCmd.Parse(os.Args[2:])
		if *taskType == "" {
			fmt.Println("Error: taskType is required for check-vars.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := checkVariables(*checkPath, *taskType, *vars); err != nil {
			fmt.Printf("Variables rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Variables accepted by %s.\n", *taskType)

	default:
		help()
	}
}

// validateRegistry checks the registry structure and that every input schema
// compiles.
func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if _, err := validation.NewValidator(reg); err != nil {
		return err
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func checkVariables(path, taskType, vars string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if _, ok := reg.Find(taskType); !ok {
		return fmt.Errorf("task type %s is not registered", taskType)
	}
	v, err := validation.NewValidator(reg)
	if err != nil {
		return err
	}
	return v.Check(taskType, vars)
}

func help() {
	fmt.Print(`
Usage: registry-check <command> [flags]

Commands:
  validate    Validate the registry file and compile every input schema
  check-vars  Validate job variables against a task type's input schema
  help        Show this help message

Examples:
  registry-check validate -path configs/activity-registry.json
  registry-check check-vars -taskType submit-application -vars '{"gameId":"g-1","applicantId":"u-1"}'
`+"\n")
}
