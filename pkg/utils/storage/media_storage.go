package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	imageutil "tradeacademy_backend/pkg/utils/image"
)

func getS3Client() (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("R2_ACCESS_KEY"),
			os.Getenv("R2_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", os.Getenv("R2_ACCOUNT_ID")))
		o.UsePathStyle = true
		o.Region = "auto"
	})

	return client, nil
}

// UploadCoverImage processes and stores a strategy or lesson cover image.
// The key groups objects under the strategy slug.
func UploadCoverImage(file *multipart.FileHeader, strategyName string) (string, error) {
	contentType := file.Header.Get("Content-Type")
	if !imageutil.AllowedImageTypes[contentType] {
		return "", fmt.Errorf("invalid file type, allowed types are: jpeg, png, webp")
	}

	buf, contentType, err := imageutil.ProcessImage(file)
	if err != nil {
		return "", err
	}

	client, err := getS3Client()
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("covers/%s/%s%s", slug.Make(strategyName), uuid.NewString(), ext)

	bucket := os.Getenv("R2_BUCKET_NAME")
	_, err = client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload image: %v", err)
	}

	return fmt.Sprintf("%s/%s", strings.TrimRight(os.Getenv("R2_PUBLIC_URL"), "/"), key), nil
}
