package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/hanzi-api/internal/handlers"
)

var predictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "Classify one image and print the JSON result",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	c, _ := bootstrap()
	defer c.Close()

	imagePath := args[0]
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	start := time.Now()
	predictions, err := c.Predictor().Predict(imagePath)
	if err != nil {
		if encErr := enc.Encode(handlers.NewErrorResponse(imagePath, err)); encErr != nil {
			return encErr
		}
		return fmt.Errorf("prediction failed for %s", imagePath)
	}
	return enc.Encode(handlers.NewPredictResponse(imagePath, predictions, time.Since(start)))
}
