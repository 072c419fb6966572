package order

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"repair-ops/logger"
	"repair-ops/models/slipparser"
	slipParserService "repair-ops/services/slipparser"
	"repair-ops/types"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/genai"
)

// ParseWaybillSlip accepts a courier slip photo and extracts the waybill
// number and receiver fields with Gemini Vision.
func (oc *OrderController) ParseWaybillSlip(c *fiber.Ctx) error {
	startTime := time.Now()

	service := slipParserService.NewSlipParserService(oc.DB)
	requestID := service.GenerateRequestID()

	file, err := c.FormFile("image")
	if err != nil {
		logger.Error(fmt.Sprintf("No image file provided for request %s", requestID), err)
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "No image file provided",
			Status:  fiber.StatusBadRequest,
			Data:    fiber.Map{"request_id": requestID},
		})
	}

	mimeType := file.Header.Get("Content-Type")
	if !isValidImageType(mimeType) {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid file type. Only JPEG, JPG, PNG, and WebP files are allowed",
			Status:  fiber.StatusBadRequest,
			Data:    fiber.Map{"request_id": requestID},
		})
	}

	maxSize := int64(10 * 1024 * 1024)
	if file.Size > maxSize {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "File size too large. Maximum size is 10MB",
			Status:  fiber.StatusBadRequest,
			Data:    fiber.Map{"request_id": requestID},
		})
	}

	if _, err := service.CreateInitialRequest(c, requestID, file.Filename, file.Size, mimeType); err != nil {
		logger.Error(fmt.Sprintf("Failed to create slip request %s", requestID), err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to initialize request",
			Status:  fiber.StatusInternalServerError,
			Data:    fiber.Map{"request_id": requestID},
		})
	}

	src, err := file.Open()
	if err != nil {
		service.SaveFailureResultAsync(requestID, "Failed to open uploaded file", time.Since(startTime).Milliseconds())
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to process uploaded file",
			Status:  fiber.StatusInternalServerError,
			Data:    fiber.Map{"request_id": requestID},
		})
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		service.SaveFailureResultAsync(requestID, "Failed to read file content", time.Since(startTime).Milliseconds())
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to read file content",
			Status:  fiber.StatusInternalServerError,
			Data:    fiber.Map{"request_id": requestID},
		})
	}

	service.SaveFileAsync(requestID, fileBytes, file.Filename)

	result, err := parseSlipWithGemini(fileBytes, mimeType)
	if err != nil {
		processingTime := time.Since(startTime).Milliseconds()
		service.SaveFailureResultAsync(requestID, fmt.Sprintf("OCR parsing failed: %s", err.Error()), processingTime)
		logger.Error(fmt.Sprintf("Failed to parse waybill slip for request %s", requestID), err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to parse waybill slip",
			Status:  fiber.StatusInternalServerError,
			Data:    fiber.Map{"error": err.Error(), "request_id": requestID},
		})
	}

	result.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	result.RequestID = requestID
	service.SaveSuccessResultAsync(requestID, result)

	logger.Success(fmt.Sprintf("Waybill slip parsed in %dms: %s (request %s)",
		result.ProcessingTimeMs, result.WaybillNo, requestID))

	return oc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Waybill slip parsed",
		Status:  fiber.StatusOK,
		Data:    result,
	})
}

// parseSlipWithGemini extracts structured waybill data from a slip image.
func parseSlipWithGemini(imageBytes []byte, mimeType string) (*slipparser.SlipParserResponse, error) {
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found in environment variables")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	prompt := `Analyze this courier waybill slip image and extract the following information. Return ONLY valid JSON.

			Extract these fields from the image. If a field is missing or unclear, use an empty string.

			Required JSON format:
			{
			"waybill_no": string,        // Waybill / tracking number
			"courier": string,           // Courier company name
			"sender_name": string,       // Sender name
			"receiver_name": string,     // Receiver name
			"receiver_phone": string     // Receiver contact phone number
			}`

	content := &genai.Content{
		Parts: []*genai.Part{
			&genai.Part{Text: prompt},
			&genai.Part{InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     imageBytes,
			}},
		},
	}

	result, err := client.Models.GenerateContent(
		ctx,
		"gemini-2.5-flash-lite",
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0.1)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with OCR: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content generated by OCR")
	}

	responseText := result.Candidates[0].Content.Parts[0].Text
	if responseText == "" {
		return nil, fmt.Errorf("empty response from OCR")
	}

	jsonText := extractJSONFromMarkdown(responseText)

	var parsedData slipparser.SlipParserResponse
	if err := json.Unmarshal([]byte(jsonText), &parsedData); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w, response: %s", err, jsonText)
	}

	return &parsedData, nil
}

// extractJSONFromMarkdown extracts JSON content from markdown code blocks
func extractJSONFromMarkdown(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 1 {
			return strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	return text
}

// isValidImageType checks if the provided content type is a valid image type
func isValidImageType(contentType string) bool {
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
	}
	return validTypes[contentType]
}
