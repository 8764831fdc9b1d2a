package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// RecordStore 层级 KV 记录存储契约
//
// 每条记录位于 /<collection>/<id>，值为 JSON 文档，文档内始终带有 "id" 字段。
//   - Create: 由存储生成 ID
//   - Set:    显式 ID 写入（仅 Month 使用，ID 由日期推导）
//   - Update: 部分字段合并，返回合并后的文档
//   - FindBy: 单字段等值查询
type RecordStore interface {
	Create(ctx context.Context, collection string, data any) (string, error)
	Set(ctx context.Context, collection, id string, data any) error
	GetByID(ctx context.Context, collection, id string, out any) error
	List(ctx context.Context, collection string, out any) error
	Update(ctx context.Context, collection, id string, partial map[string]any) (map[string]any, error)
	FindBy(ctx context.Context, collection, field string, value any, out any) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// encodeDoc 将任意结构编码为带 id 的文档
func encodeDoc(id string, data any) ([]byte, error) {
	doc, err := toDoc(data)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return json.Marshal(doc)
}

// toDoc 通过 JSON 往返把结构体转成 map
func toDoc(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("record must be an object: %w", err)
	}
	return doc, nil
}

// mergeDoc 把 partial 合并进原文档，id 字段不可被覆盖
func mergeDoc(raw []byte, partial map[string]any) (map[string]any, []byte, error) {
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode record: %w", err)
	}
	patch, err := toDoc(partial)
	if err != nil {
		return nil, nil, err
	}
	id := doc["id"]
	for k, v := range patch {
		doc[k] = v
	}
	doc["id"] = id
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("encode record: %w", err)
	}
	return doc, out, nil
}

// fieldMatches 判断文档某字段是否等于给定值（按字符串形式比较）
func fieldMatches(raw []byte, field string, value any) bool {
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	v, ok := doc[field]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == fmt.Sprint(value)
}

// decodeList 把多条原始文档解码进切片指针
func decodeList(raws [][]byte, out any) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range raws {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r)
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}
