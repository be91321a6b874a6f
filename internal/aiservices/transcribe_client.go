package aiservices

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

const transcriptionJobPrefix = "task-transcription-"

type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, input *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, input *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// TranscribeClient drives asynchronous AWS Transcribe jobs on task audio.
type TranscribeClient struct {
	api          transcribeAPI
	bucket       string
	languageCode string
	httpClient   *http.Client
}

func NewTranscribeClient(api transcribeAPI, bucket, languageCode string) (*TranscribeClient, error) {
	if api == nil {
		return nil, fmt.Errorf("transcribe API cannot be nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("media bucket cannot be empty")
	}
	languageCode = strings.TrimSpace(languageCode)
	if languageCode == "" {
		return nil, fmt.Errorf("language code cannot be empty")
	}

	return &TranscribeClient{
		api:          api,
		bucket:       bucket,
		languageCode: languageCode,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

var _ Transcriber = (*TranscribeClient)(nil)

// StartTranscriptionJob kicks off a transcription of the audio at mediaKey
// and returns the generated job name.
func (c *TranscribeClient) StartTranscriptionJob(ctx context.Context, mediaKey string) (string, error) {
	jobName, err := newTranscriptionJobName()
	if err != nil {
		return "", err
	}

	input := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		LanguageCode:         types.LanguageCode(c.languageCode),
		Media: &types.Media{
			MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s", c.bucket, mediaKey)),
		},
		MediaFormat: mediaFormatFromKey(mediaKey),
	}

	if _, err = c.api.StartTranscriptionJob(ctx, input); err != nil {
		return "", fmt.Errorf("starting transcription job for media %s: %w", mediaKey, err)
	}
	return jobName, nil
}

// GetTranscriptionJob returns the job state, fetching the transcript text
// when the job has completed.
func (c *TranscribeClient) GetTranscriptionJob(ctx context.Context, jobName string) (*TranscriptionJob, error) {
	output, err := c.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return nil, fmt.Errorf("getting transcription job %s: %w", jobName, err)
	}

	awsJob := output.TranscriptionJob
	job := &TranscriptionJob{
		JobName: jobName,
		Status:  string(awsJob.TranscriptionJobStatus),
	}

	switch awsJob.TranscriptionJobStatus {
	case types.TranscriptionJobStatusFailed:
		job.FailureReason = aws.ToString(awsJob.FailureReason)

	case types.TranscriptionJobStatusCompleted:
		if awsJob.Transcript == nil || awsJob.Transcript.TranscriptFileUri == nil {
			return nil, fmt.Errorf("transcription job %s completed without a transcript URI", jobName)
		}
		transcript, fetchErr := c.fetchTranscript(ctx, *awsJob.Transcript.TranscriptFileUri)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetching transcript of job %s: %w", jobName, fetchErr)
		}
		job.Transcript = transcript
	}

	return job, nil
}

// fetchTranscript downloads and parses the transcript JSON document.
func (c *TranscribeClient) fetchTranscript(ctx context.Context, transcriptURI string) (string, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, transcriptURI, nil)
			if reqErr != nil {
				return retry.Unrecoverable(reqErr)
			}
			resp, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return doErr
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status code %d fetching transcript", resp.StatusCode)
			}
			body, doErr = io.ReadAll(resp.Body)
			return doErr
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
	)
	if err != nil {
		return "", err
	}

	var doc struct {
		Results struct {
			Transcripts []struct {
				Transcript string `json:"transcript"`
			} `json:"transcripts"`
		} `json:"results"`
	}
	if err = json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parsing transcript document: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", fmt.Errorf("transcript document has no transcripts")
	}
	return doc.Results.Transcripts[0].Transcript, nil
}

func newTranscriptionJobName() (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generating transcription job name: %w", err)
	}
	return transcriptionJobPrefix + hex.EncodeToString(suffix), nil
}

func mediaFormatFromKey(mediaKey string) types.MediaFormat {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(mediaKey), ".")) {
	case "wav":
		return types.MediaFormatWav
	case "flac":
		return types.MediaFormatFlac
	case "ogg":
		return types.MediaFormatOgg
	case "mp4", "m4a":
		return types.MediaFormatMp4
	default:
		return types.MediaFormatMp3
	}
}
