package ai

import (
	"fmt"
	"strings"
)

const recognizePrompt = `あなたは個人の持ち物を整理するための識別アシスタントです。
写真に写っている主な物品を1つ特定し、次のJSONオブジェクトだけを返してください。説明文やコードブロックは不要です。

{
  "name": "商品名（型番が分かれば含める）",
  "description": "特徴を1〜2文で",
  "category": "カテゴリ（例: 家電, カメラ, 衣類, 本, 家具, 雑貨）",
  "manufacturer": "メーカー名（不明なら空文字）",
  "condition": "new | like_new | good | fair | poor のいずれか",
  "estimatedPrice": 中古相場の概算（円、整数。不明なら null）,
  "confidence": 0.0〜1.0 の確信度
}

Hard rules:
* 写真から読み取れない情報を創作しないこと。分からない項目は空文字か null にする。
* condition は写真の傷や汚れから判断し、判断できなければ "good" とする。`

const priceSearchPrompt = `あなたは中古相場の調査アシスタントです。
Google検索を使って、次の商品の中古販売・落札価格を日本のマーケット（メルカリ、ヤフオク!、ラクマ、中古販売店など）から最大10件集めてください。

商品: %s

次の形式のJSONだけを返してください。
{
  "summary": "相場の傾向を1〜2文で",
  "listings": [
    {"site": "サイト名", "title": "出品タイトル", "price": "表示価格（例: ¥12,800）", "url": "URL", "condition": "状態"}
  ]
}
見つからない場合は listings を空配列にしてください。`

// BuildPriceSearchPrompt embeds the item query into the price search instructions.
func BuildPriceSearchPrompt(query string) string {
	return fmt.Sprintf(priceSearchPrompt, strings.TrimSpace(query))
}
