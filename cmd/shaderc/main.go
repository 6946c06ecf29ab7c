// Command shaderc compiles, reflects and checks the textured mesh shaders.
//
// Usage:
//
//	shaderc [options] [input.wgsl]
//
// Without an input file the built-in source of -variant is used.
//
// Examples:
//
//	shaderc -target spirv -o camera.spv          # Built-in camera variant to SPIR-V
//	shaderc -variant passthrough -target msl     # Passthrough variant to MSL
//	shaderc -reflect custom.wgsl                 # Print bindings of a WGSL file
//	shaderc -check                               # Verify every variant
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"quadviewer/internal/shader"
)

var (
	variantName = flag.String("variant", "camera", "shader variant: camera or passthrough")
	targetName  = flag.String("target", "wgsl", "output language: wgsl, spirv, glsl, msl, hlsl")
	output      = flag.String("o", "", "output file (default: stdout)")
	reflect     = flag.Bool("reflect", false, "print the binding interface as JSON instead of code")
	check       = flag.Bool("check", false, "verify the shader against the host binding contract")
	version     = flag.Bool("version", false, "print version")
)

const shadercVersion = "0.3.0"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("shaderc version %s\n", shadercVersion)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	variant, err := shader.ParseVariant(*variantName)
	if err != nil {
		return err
	}
	target, err := shader.ParseTarget(*targetName)
	if err != nil {
		return err
	}

	name, source := variant.String(), shader.Source(variant)
	if args := flag.Args(); len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		name, source = args[0], string(data)
	} else if *check {
		return checkAll()
	}

	module, err := shader.LoadSource(name, source)
	if err != nil {
		return err
	}

	if *check {
		refl, err := shader.Reflect(module)
		if err != nil {
			return err
		}
		if err := shader.Check(refl, shader.Contract(variant)); err != nil {
			return err
		}
		fmt.Printf("%s: ok (%s contract)\n", name, variant)
		return nil
	}

	var out []byte
	if *reflect {
		refl, err := shader.Reflect(module)
		if err != nil {
			return err
		}
		out, err = json.MarshalIndent(refl, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')
	} else if target == shader.TargetWGSL {
		out = []byte(source)
	} else {
		out, err = shader.CompileModule(module, target, name)
		if err != nil {
			return err
		}
	}

	if *output == "" {
		if target.Binary() && !*reflect {
			return fmt.Errorf("refusing to write %s to stdout, use -o", target)
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(*output, out, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Compiled %s to %s (%d bytes)\n", name, *output, len(out))
	return nil
}

func checkAll() error {
	failed := 0
	for _, v := range shader.Variants() {
		if _, err := shader.Verify(v); err != nil {
			fmt.Printf("%s: %v\n", v, err)
			failed++
			continue
		}
		fmt.Printf("%s: ok\n", v)
	}
	if failed > 0 {
		return fmt.Errorf("%d variant(s) failed", failed)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: shaderc [options] [input.wgsl]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  shaderc -target spirv -o camera.spv   Built-in camera variant to SPIR-V\n")
	fmt.Fprintf(os.Stderr, "  shaderc -reflect custom.wgsl          Print bindings of a WGSL file\n")
	fmt.Fprintf(os.Stderr, "  shaderc -check                        Verify every variant\n")
}
