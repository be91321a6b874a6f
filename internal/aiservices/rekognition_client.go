package aiservices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/dgraph-io/ristretto"

	"github.com/crowdtask/platform-backend/internal/logger"
)

const (
	maxDetectedLabels = 20
	labelCacheTTL     = 10 * time.Minute
)

type rekognitionAPI interface {
	DetectLabels(ctx context.Context, input *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// RekognitionLabelDetector detects image labels through AWS Rekognition,
// memoizing per media key so peer submissions on the same task do not repeat
// the call.
type RekognitionLabelDetector struct {
	api           rekognitionAPI
	bucket        string
	minConfidence float32
	cache         *ristretto.Cache
}

func NewRekognitionLabelDetector(api rekognitionAPI, bucket string, minConfidence float64) (*RekognitionLabelDetector, error) {
	if api == nil {
		return nil, fmt.Errorf("rekognition API cannot be nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("media bucket cannot be empty")
	}
	if minConfidence <= 0 || minConfidence > 100 {
		return nil, fmt.Errorf("minConfidence must be in (0, 100], got %v", minConfidence)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating label cache: %w", err)
	}

	return &RekognitionLabelDetector{
		api:           api,
		bucket:        bucket,
		minConfidence: float32(minConfidence),
		cache:         cache,
	}, nil
}

var _ LabelDetector = (*RekognitionLabelDetector)(nil)

// DetectLabels returns the labels of the image at mediaKey, parents included.
// A parent label carries the confidence of the child that surfaced it.
func (d *RekognitionLabelDetector) DetectLabels(ctx context.Context, mediaKey string) ([]Label, error) {
	if cached, found := d.cache.Get(mediaKey); found {
		return cached.([]Label), nil
	}

	output, err := d.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(d.bucket),
				Name:   aws.String(mediaKey),
			},
		},
		MaxLabels:     aws.Int32(maxDetectedLabels),
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detecting labels for media %s: %w", mediaKey, err)
	}

	labels := flattenLabels(output.Labels)
	d.cache.SetWithTTL(mediaKey, labels, 1, labelCacheTTL)
	logger.Ctx(ctx).Debugf("Detected %d labels for media %s", len(labels), mediaKey)

	return labels, nil
}

func flattenLabels(detected []types.Label) []Label {
	labels := make([]Label, 0, len(detected))
	for _, l := range detected {
		if l.Name == nil {
			continue
		}
		confidence := float64(aws.ToFloat32(l.Confidence)) / 100
		labels = append(labels, Label{Name: *l.Name, Confidence: confidence})
		for _, parent := range l.Parents {
			if parent.Name == nil {
				continue
			}
			labels = append(labels, Label{Name: *parent.Name, Confidence: confidence})
		}
	}
	return labels
}
