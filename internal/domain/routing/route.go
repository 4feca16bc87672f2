package routing

// Route はメッセージが辿った応答経路を表す型
type Route string

// ルーティング経路の定数定義
const (
	RouteEMPTY    Route = "EMPTY"    // 空入力（入力を促す固定文）
	RouteTRIGGER  Route = "TRIGGER"  // トリガーフレーズによる生成サービスへの明示委譲
	RouteTEMPLATE Route = "TEMPLATE" // クラスタに紐づく定型応答
	RouteFALLBACK Route = "FALLBACK" // 分類不能・クラスタ未登録時の生成サービス
)

// String はRouteの文字列表現を返す
func (r Route) String() string {
	return string(r)
}

// UsesGenerator は生成サービスを呼び出す経路かを判定
func (r Route) UsesGenerator() bool {
	return r == RouteTRIGGER || r == RouteFALLBACK
}

// Decision はルーティング決定の結果を表す
type Decision struct {
	Route  Route  // 決定されたルート
	Reason string // 決定理由
}

// NewDecision は新しいDecisionを作成
func NewDecision(route Route, reason string) Decision {
	return Decision{
		Route:  route,
		Reason: reason,
	}
}
