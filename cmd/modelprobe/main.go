// Package main checks that model files load with the available runtimes.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/tsawler/go-metal/checkpoints"
	"github.com/urfave/cli/v2"

	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/inference"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:  "modelprobe",
		Usage: "inspect ONNX models before wiring them into facewarp",
		Commands: []*cli.Command{
			{
				Name:      "ort",
				Usage:     "load a model with ONNX Runtime and print its inputs, outputs and metadata",
				ArgsUsage: "<model.onnx>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "ort-library",
						Value:   inference.DefaultLibraryPath(),
						Usage:   "ONNX Runtime shared library",
						EnvVars: []string{config.EnvORTLib},
					},
				},
				Action: probeORT,
			},
			{
				Name:      "metal",
				Usage:     "try to import a model with go-metal",
				ArgsUsage: "<model.onnx>",
				Action:    probeMetal,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func modelArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.Errorf("expected one model path, got %d", c.NArg())
	}
	path := c.Args().First()
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrap(err, "model not found")
	}
	return path, nil
}

func probeORT(c *cli.Context) error {
	path, err := modelArg(c)
	if err != nil {
		return err
	}
	if err := inference.Initialize(c.String("ort-library")); err != nil {
		return err
	}
	defer inference.Shutdown()

	info, err := inference.Describe(path)
	if err != nil {
		return err
	}

	fmt.Printf("Model: %s\n", path)
	fmt.Printf("\nInputs (%d):\n", len(info.Inputs))
	for _, t := range info.Inputs {
		fmt.Printf("  %s: shape=%v, type=%s\n", t.Name, t.Dimensions, t.DataType)
	}
	fmt.Printf("\nOutputs (%d):\n", len(info.Outputs))
	for _, t := range info.Outputs {
		fmt.Printf("  %s: shape=%v, type=%s\n", t.Name, t.Dimensions, t.DataType)
	}

	fmt.Println("\nMetadata:")
	fmt.Printf("  Producer: %s\n", info.Producer)
	fmt.Printf("  Version: %d\n", info.Version)
	fmt.Printf("  Domain: %s\n", info.Domain)
	fmt.Printf("  Description: %s\n", info.Description)
	return nil
}

func probeMetal(c *cli.Context) error {
	path, err := modelArg(c)
	if err != nil {
		return err
	}

	checkpoint, err := checkpoints.NewONNXImporter().ImportFromONNX(path)
	if err != nil {
		// go-metal covers Conv, MatMul, Add, Relu, LeakyRelu, Sigmoid, Tanh,
		// BatchNorm, Dropout, Softmax and Flatten
		return errors.Wrap(err, "go-metal could not import the model")
	}

	fmt.Printf("Model: %s\n", path)
	fmt.Printf("  Layers: %d\n", len(checkpoint.ModelSpec.Layers))
	fmt.Printf("  Weights: %d tensors\n", len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
	return nil
}
