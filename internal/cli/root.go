package cli

import (
	"fmt"

	"smedge-submit/internal/sitecfg"
	"smedge-submit/internal/version"
)

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "package":
		return runPackage(args[1:])
	case "submit":
		return runSubmit(args[1:])
	case "mirror":
		return runMirror(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "form":
		return runForm(args[1:])
	case "history":
		return runHistory(args[1:])
	case "version":
		fmt.Println(version.Value)
		return nil
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("smedge-submit: package and submit scenes to the Smedge render farm")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  smedge-submit init")
	fmt.Println("  smedge-submit form --scene <scene.ma>")
	fmt.Println("  smedge-submit submit --scene <scene.ma>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init      create site config + run environment checks")
	fmt.Println("  doctor    run dependency and filesystem preflight checks")
	fmt.Println("  form      interactive submission form for one scene")
	fmt.Println("  settings  show/update stored submission settings for a scene")
	fmt.Println("  submit    mirror the project and write one job file per enabled layer")
	fmt.Println("  package   archive a scene into a self-contained render package")
	fmt.Println("  mirror    mirror a project directory to the network (once or on a schedule)")
	fmt.Println("  history   list recorded submissions")
	fmt.Println("  version   print the CLI version")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Every command accepts --config <path> (default " + sitecfg.DefaultPath + ")")
}
