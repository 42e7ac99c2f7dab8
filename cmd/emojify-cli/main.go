package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/basel-ax/emojify/internal/client"
	"github.com/basel-ax/emojify/internal/domain"
	"github.com/basel-ax/emojify/internal/preprocess"
)

func main() {
	imagePath := flag.String("image", "", "Image file to turn into an emoji")
	outPath := flag.String("out", "emoji.png", "Where to save the generated emoji")
	serverURL := flag.String("server", "http://localhost:8080", "emojify server URL")
	flag.Parse()

	log.SetFlags(0)

	if *imagePath == "" {
		log.Fatal("Please specify an image with -image")
	}

	if err := run(context.Background(), *imagePath, *outPath, client.NewClient(*serverURL, nil)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Emoji saved to %s\n", *outPath)
}

func run(ctx context.Context, imagePath, outPath string, c *client.Client) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", imagePath, err)
	}

	payload, err := preprocess.Resize(data)
	if err != nil {
		var decodeErr *domain.DecodeError
		if errors.As(err, &decodeErr) {
			return errors.New("Failed to process image")
		}
		return err
	}

	result, err := c.CreatePrediction(ctx, payload)
	if err != nil {
		return err
	}

	output, ok := result.FirstOutput()
	if !ok {
		return fmt.Errorf("prediction %s returned no image", result.ID)
	}
	emoji, err := output.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode emoji: %w", err)
	}
	return os.WriteFile(outPath, emoji, 0o644)
}
