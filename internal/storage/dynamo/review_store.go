package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

const defaultRegion = "us-east-1"

// DynamoDBAPI: подмножество клиента DynamoDB, которое использует ReviewStore.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dyn.DescribeTableInput, optFns ...func(*dyn.Options)) (*dyn.DescribeTableOutput, error)
}

// Options описывает подключение к DynamoDB.
type Options struct {
	Region string
	// Endpoint переопределяет адрес сервиса (DynamoDB Local, LocalStack).
	Endpoint string
	Table    string
}

// NewClient загружает AWS-конфигурацию по умолчанию и создаёт клиент DynamoDB.
func NewClient(ctx context.Context, opts Options) (*dyn.Client, error) {
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dyn.NewFromConfig(cfg, func(o *dyn.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// reviewItem: строка таблицы отзывов. Ключ партиции product_id,
// ключ сортировки review_key = дата отзыва + "#" + id.
type reviewItem struct {
	ProductID  int64     `dynamodbav:"product_id"`
	ReviewKey  string    `dynamodbav:"review_key"`
	ReviewID   string    `dynamodbav:"review_id"`
	CustomerID int64     `dynamodbav:"customer_id"`
	Rating     int       `dynamodbav:"rating"`
	Comment    string    `dynamodbav:"comment,omitempty"`
	ReviewDate time.Time `dynamodbav:"review_date"`
}

// ReviewStore: документное хранилище отзывов в таблице DynamoDB.
type ReviewStore struct {
	client DynamoDBAPI
	table  string
}

// NewReviewStore создаёт ReviewStore поверх клиента DynamoDB.
func NewReviewStore(client DynamoDBAPI, table string) *ReviewStore {
	return &ReviewStore{client: client, table: table}
}

// Ping проверяет, что таблица существует и доступна.
func (s *ReviewStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dyn.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	return nil
}

func (s *ReviewStore) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.ReviewDate = review.ReviewDate.UTC()

	item, err := attributevalue.MarshalMap(reviewItem{
		ProductID:  review.ProductID,
		ReviewKey:  reviewKey(review),
		ReviewID:   review.ID,
		CustomerID: review.CustomerID,
		Rating:     review.Rating,
		Comment:    review.Comment,
		ReviewDate: review.ReviewDate,
	})
	if err != nil {
		return domain.Review{}, domain.NewStorageError("marshal review", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(review_key)"),
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return domain.Review{}, domain.NewStorageError("insert review", fmt.Errorf("review %s already stored", review.ID))
		}
		return domain.Review{}, domain.NewStorageError("insert review", err)
	}
	return review, nil
}

// FindReviewsByProduct читает все страницы выборки по ключу партиции.
func (s *ReviewStore) FindReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	input := &dyn.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("product_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberN{Value: strconv.FormatInt(productID, 10)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	reviews := make([]domain.Review, 0)
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, domain.NewStorageError("query reviews", err)
		}

		var items []reviewItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, domain.NewStorageError("unmarshal reviews", err)
		}
		for _, item := range items {
			reviews = append(reviews, domain.Review{
				ID:         item.ReviewID,
				ProductID:  item.ProductID,
				CustomerID: item.CustomerID,
				Rating:     item.Rating,
				Comment:    item.Comment,
				ReviewDate: item.ReviewDate,
			})
		}

		if len(out.LastEvaluatedKey) == 0 {
			return reviews, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func reviewKey(r domain.Review) string {
	return r.ReviewDate.Format(time.RFC3339Nano) + "#" + r.ID
}

var _ domain.ReviewStore = (*ReviewStore)(nil)
