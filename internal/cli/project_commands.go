package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"smedge-submit/internal/sitecfg"
	"smedge-submit/internal/workspace"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	config := fs.String("config", sitecfg.DefaultPath, "site config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := workspace.Init(workspace.InitOptions{
		ConfigPath: strings.TrimSpace(*config),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Println("site initialized")
	fmt.Printf("config: %s\n", res.ConfigPath)
	fmt.Printf("created_config: %t\n", res.CreatedConfig)
	fmt.Println("checks:")
	printChecks("  ", res.DoctorResult.Checks)
	if !res.DoctorResult.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("next: smedge-submit form --scene <scene>")
	return nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	config := fs.String("config", sitecfg.DefaultPath, "site config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := workspace.Doctor(workspace.DoctorOptions{
		ConfigPath: strings.TrimSpace(*config),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	printChecks("", res.Checks)
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	return nil
}

func printChecks(indent string, checks []workspace.DoctorCheck) {
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s%s: %s (%s)\n", indent, c.Name, status, c.Message)
	}
}
