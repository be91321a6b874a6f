package aiservices

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

type sageMakerAPI interface {
	InvokeEndpoint(ctx context.Context, input *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// SageMakerInvoker calls a custom model endpoint for task types that have one
// configured.
type SageMakerInvoker struct {
	api          sageMakerAPI
	endpointName string
}

func NewSageMakerInvoker(api sageMakerAPI, endpointName string) (*SageMakerInvoker, error) {
	if api == nil {
		return nil, fmt.Errorf("sagemaker API cannot be nil")
	}
	endpointName = strings.TrimSpace(endpointName)
	if endpointName == "" {
		return nil, fmt.Errorf("endpoint name cannot be empty")
	}
	return &SageMakerInvoker{api: api, endpointName: endpointName}, nil
}

var _ ModelInvoker = (*SageMakerInvoker)(nil)

func (s *SageMakerInvoker) InvokeModel(ctx context.Context, payload []byte) ([]byte, error) {
	output, err := s.api.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(s.endpointName),
		ContentType:  aws.String("application/json"),
		Body:         payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking sagemaker endpoint %s: %w", s.endpointName, err)
	}
	return output.Body, nil
}
