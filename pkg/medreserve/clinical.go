package medreserve

import (
	"context"
	"fmt"
	"maps"
)

const (
	defaultPredictionMethod = "ensemble"
	defaultAnalysisType     = "ml"
	defaultTopFeatures      = 10
)

type PrescriptionService service

func (s *PrescriptionService) List(ctx context.Context, opts *ListOptions) (Page[Prescription], error) {
	var page Page[Prescription]
	err := s.client.api.Get(ctx, "/prescriptions", opts.values(), &page)

	return page, err
}

func (s *PrescriptionService) Get(ctx context.Context, id int64) (Prescription, error) {
	var p Prescription
	err := s.client.api.Get(ctx, fmt.Sprintf("/prescriptions/%d", id), nil, &p)

	return p, err
}

func (s *PrescriptionService) Create(ctx context.Context, in Prescription) (Prescription, error) {
	var p Prescription
	err := s.client.api.Post(ctx, "/prescriptions", in, &p)

	return p, err
}

type AIService service

func (s *AIService) AnalyzeSymptoms(ctx context.Context, symptoms string) (Document, error) {
	return s.post(ctx, "/ai/analyze-symptoms", map[string]any{"symptoms": symptoms})
}

func (s *AIService) Chat(ctx context.Context, message string) (Document, error) {
	return s.post(ctx, "/ai/chatbot", map[string]any{"message": message})
}

func (s *AIService) post(ctx context.Context, path string, body any) (Document, error) {
	var doc Document
	err := s.client.api.Post(ctx, path, body, &doc)

	return doc, err
}

type PredictionService service

// Predict runs the disease prediction with the requested method, "ensemble"
// when empty.
func (s *PredictionService) Predict(ctx context.Context, in PredictionRequest) (Document, error) {
	if in.Method == "" {
		in.Method = defaultPredictionMethod
	}

	return s.post(ctx, "/disease-prediction/predict", in.body(true))
}

func (s *PredictionService) PredictML(ctx context.Context, in PredictionRequest) (Document, error) {
	return s.post(ctx, "/disease-prediction/predict/ml", in.body(false))
}

func (s *PredictionService) PredictDL(ctx context.Context, in PredictionRequest) (Document, error) {
	return s.post(ctx, "/disease-prediction/predict/dl", in.body(false))
}

func (s *PredictionService) Compare(ctx context.Context, in PredictionRequest) (Document, error) {
	return s.post(ctx, "/disease-prediction/compare", in.body(false))
}

// Analyze explains a prediction. analysisType defaults to "ml" and
// topFeatures to 10.
func (s *PredictionService) Analyze(ctx context.Context, symptoms []string, analysisType string, topFeatures int) (Document, error) {
	if analysisType == "" {
		analysisType = defaultAnalysisType
	}
	if topFeatures <= 0 {
		topFeatures = defaultTopFeatures
	}

	return s.post(ctx, "/disease-prediction/analyze", map[string]any{
		"symptoms":     symptoms,
		"analysisType": analysisType,
		"topFeatures":  topFeatures,
	})
}

func (s *PredictionService) Health(ctx context.Context) (Document, error) {
	var doc Document
	err := s.client.api.Get(ctx, "/disease-prediction/health", nil, &doc)

	return doc, err
}

func (s *PredictionService) post(ctx context.Context, path string, body map[string]any) (Document, error) {
	var doc Document
	err := s.client.api.Post(ctx, path, body, &doc)

	return doc, err
}

// body flattens Extra next to the symptoms. Explicit fields win.
func (r PredictionRequest) body(withMethod bool) map[string]any {
	b := make(map[string]any, len(r.Extra)+2)
	maps.Copy(b, r.Extra)

	b["symptoms"] = r.Symptoms
	if withMethod {
		b["method"] = r.Method
	}

	return b
}
